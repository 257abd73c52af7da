package publish

import (
	"strings"
	"testing"

	"github.com/ByLCY/versereel/metadata"
)

func TestVideoPayload(t *testing.T) {
	meta := metadata.Metadata{
		Title:       strings.Repeat("ا", 120),
		Description: "Par le Temps !",
		Hashtags:    []string{"#coran", "#islam"},
	}
	v := Video(meta, Options{})
	if n := len([]rune(v.Snippet.Title)); n != maxTitleRunes {
		t.Fatalf("expected title cut to %d runes, got %d", maxTitleRunes, n)
	}
	if !strings.HasSuffix(v.Snippet.Description, "#coran #islam #Shorts") {
		t.Fatalf("unexpected description %q", v.Snippet.Description)
	}
	if v.Status.PrivacyStatus != "private" || v.Snippet.CategoryId != "27" {
		t.Fatalf("unexpected defaults %+v %+v", v.Status, v.Snippet)
	}
	if len(v.Snippet.Tags) != 2 || v.Snippet.Tags[0] != "coran" {
		t.Fatalf("unexpected tags %v", v.Snippet.Tags)
	}
}

func TestVideoKeepsExistingShortsTag(t *testing.T) {
	v := Video(metadata.Metadata{Title: "Al-Asr", Hashtags: []string{"#shorts"}}, Options{Privacy: "public", CategoryID: "22"})
	if strings.Count(strings.ToLower(v.Snippet.Description), "#shorts") != 1 {
		t.Fatalf("duplicated shorts tag: %q", v.Snippet.Description)
	}
	if v.Status.PrivacyStatus != "public" || v.Snippet.CategoryId != "22" {
		t.Fatalf("options ignored: %+v", v.Status)
	}
}
