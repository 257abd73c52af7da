package metadata

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseSections(t *testing.T) {
	text := `Voici ma proposition :

[TITRE]
Le Temps ne pardonne pas ⏳

**[DESCRIPTION]**
Par le Temps, l'homme est en perdition.
Sauf ceux qui croient et s'entraident.

[HASHTAGS]
#Coran #Islam, #quran #Time #coran #rappel
`
	m, err := Parse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "Le Temps ne pardonne pas ⏳" {
		t.Fatalf("unexpected title %q", m.Title)
	}
	if !strings.HasPrefix(m.Description, "Par le Temps") || !strings.HasSuffix(m.Description, "s'entraident.") {
		t.Fatalf("unexpected description %q", m.Description)
	}
	want := []string{"#Coran", "#Islam", "#quran", "#Time", "#rappel"}
	if !reflect.DeepEqual(m.Hashtags, want) {
		t.Fatalf("hashtags = %v, want %v", m.Hashtags, want)
	}
	if tags := m.Tags(); tags[0] != "Coran" || len(tags) != 5 {
		t.Fatalf("unexpected tags %v", tags)
	}
}

func TestParseRejectsMissingTitle(t *testing.T) {
	cases := []string{"", "   ", "[DESCRIPTION]\nseulement une description"}
	for _, text := range cases {
		if _, err := Parse(text); !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("Parse(%q): expected ErrEmptyResponse, got %v", text, err)
		}
	}
}

func TestParseAddsMissingHash(t *testing.T) {
	m, err := Parse("[TITLE]\nAl-Asr\n[TAGS]\nquran, islam.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(m.Hashtags, []string{"#quran", "#islam"}) {
		t.Fatalf("unexpected hashtags %v", m.Hashtags)
	}
}

func TestPromptMentionsVerse(t *testing.T) {
	p := Prompt(Input{SurahName: "Al-Asr", Ayah: "103:1", Text: "Par le Temps !", Theme: "Time"})
	for _, want := range []string{"Al-Asr (103:1)", "Thème : Time", `"Par le Temps !"`, "[TITRE]", "[DESCRIPTION]", "[HASHTAGS]"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestStaticGenerator(t *testing.T) {
	m, err := Static{}.Generate(context.Background(), Input{SurahName: "Al-Ikhlas", Ayah: "112:1", Text: "Dis : Il est Allah, Unique.", Theme: "Divine Unity"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "Al-Ikhlas 112:1" || m.Hashtags[len(m.Hashtags)-1] != "#divineunity" {
		t.Fatalf("unexpected metadata %+v", m)
	}
	if !strings.HasSuffix(m.Body(), "#divineunity") {
		t.Fatalf("body must end with hashtags: %q", m.Body())
	}
	if _, err := (Static{}).Generate(context.Background(), Input{}); err == nil {
		t.Fatal("expected error for empty input")
	}
}
