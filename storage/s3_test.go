package storage

import "testing"

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix, id, want string
	}{
		{"", "abc", "renders/abc.mp4"},
		{"/videos/", "abc", "videos/abc.mp4"},
		{"shorts/2026", "112-1", "shorts/2026/112-1.mp4"},
	}
	for _, tc := range cases {
		if got := ObjectKey(tc.prefix, tc.id); got != tc.want {
			t.Fatalf("ObjectKey(%q, %q) = %q, want %q", tc.prefix, tc.id, got, tc.want)
		}
	}
}
