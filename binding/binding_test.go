package binding

import (
	"reflect"
	"strings"
	"testing"
)

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"verse": map[string]any{
			"surah_name": "Al-Ikhlas",
			"surah":      112,
			"ayah":       1,
			"tags":       []string{"quran", "islam"},
		},
	}
	cases := []struct {
		in   string
		want string
	}{
		{"${verse.surah_name} ${verse.surah}:${verse.ayah}", "Al-Ikhlas 112:1"},
		{"#${verse.tags[1]}", "#islam"},
		{"${ verse.surah_name }", "Al-Ikhlas"},
		{"${verse.missing}", "${verse.missing}"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, data); got != tc.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveReportsMissingPaths(t *testing.T) {
	_, err := Resolve("${verse.text_rtl} ${verse.text_latin}", map[string]any{"verse": map[string]any{"text_rtl": "قل"}})
	if err == nil || !strings.Contains(err.Error(), "verse.text_latin") {
		t.Fatalf("expected missing path in error, got %v", err)
	}
	got, err := Resolve("${verse.text_rtl}", map[string]any{"verse": map[string]string{"text_rtl": "قل"}})
	if err != nil || got != "قل" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	if _, err := Resolve("${a}", nil); err == nil {
		t.Fatal("expected error with nil data")
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("${b} ${a} ${b}")
	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
