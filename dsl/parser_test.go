package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/versereel/dsl"
)

const sampleDSL = `
scene Verse v1 {
  meta {
    title: "${verse.surah_name} ${verse.surah}:${verse.ayah}"
    keywords: [
      "quran"
      "shorts"
    ]
  }

  // 画面整体设置
  frame {
    width: 1080px
    height: 1920px
    background: #000000
    dim: 0.5
    pad: 2s
  }

  caption arabic rtl {
    font: "assets/fonts/arabic.ttf"
    size: 80px
    min-size: 36px
    anchor: 450px
    color: white
    text: "${verse.text_rtl}"
  }

  caption translation {
    color: #FFFF00
    text: "${verse.text_latin}"
    shadow off
    box 60%
    shadow
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if doc.Name != "Verse" {
		t.Fatalf("expected scene name Verse, got %s", doc.Name)
	}
	if doc.Version != "v1" {
		t.Fatalf("expected version v1, got %s", doc.Version)
	}
	if len(doc.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(doc.Sections))
	}
	kinds := []string{"meta", "frame", "caption", "caption"}
	for i, want := range kinds {
		if got := doc.Sections[i].Kind(); got != want {
			t.Fatalf("section %d: expected %s, got %s", i, want, got)
		}
	}

	meta := doc.Sections[0].Meta
	title := meta.Statements[0].Property
	if title == nil || title.Key != "title" {
		t.Fatalf("expected title property, got %+v", meta.Statements[0])
	}
	if got := string(*title.Value.String); !strings.Contains(got, "${verse.surah_name}") {
		t.Fatalf("expected interpolation in title, got %s", got)
	}
	keywords := meta.Statements[1].Property
	if keywords == nil || keywords.Value.List == nil || len(keywords.Value.List.Items) != 2 {
		t.Fatalf("expected keywords list with 2 values, got %+v", keywords)
	}

	frame := doc.Sections[1].Frame
	if len(frame.Statements) != 5 {
		t.Fatalf("expected 5 frame statements, got %d", len(frame.Statements))
	}
	bg := frame.Statements[2].Property
	if bg == nil || bg.Value.Color == nil || *bg.Value.Color != "#000000" {
		t.Fatalf("expected background color, got %+v", frame.Statements[2])
	}
	if raw, ok := frame.Statements[4].Property.Value.Raw(); !ok || raw != "2s" {
		t.Fatalf("expected pad 2s, got %q", raw)
	}

	captions := doc.Captions()
	if len(captions) != 2 {
		t.Fatalf("expected 2 captions, got %d", len(captions))
	}
	if captions[0].Name != "arabic" || captions[0].Script != "rtl" {
		t.Fatalf("unexpected first caption header: %s %s", captions[0].Name, captions[0].Script)
	}
	if captions[1].Name != "translation" || captions[1].Script != "" {
		t.Fatalf("unexpected second caption header: %s %q", captions[1].Name, captions[1].Script)
	}

	minSize := captions[0].Block.Statements[2].Property
	if minSize == nil || minSize.Key != "min-size" || *minSize.Value.Number != "36px" {
		t.Fatalf("expected min-size 36px, got %+v", captions[0].Block.Statements[2])
	}
	color := captions[0].Block.Statements[4].Property
	if color == nil || color.Value.Word == nil || *color.Value.Word != "white" {
		t.Fatalf("expected named color, got %+v", captions[0].Block.Statements[4])
	}

	switches := captions[1].Block.Statements[2:]
	want := []struct{ name, arg string }{{"shadow", "off"}, {"box", "60%"}, {"shadow", ""}}
	if len(switches) != len(want) {
		t.Fatalf("expected %d switches, got %d", len(want), len(switches))
	}
	for i, w := range want {
		sw := switches[i].Switch
		if sw == nil || sw.Name != w.name {
			t.Fatalf("switch %d: expected %s, got %+v", i, w.name, switches[i])
		}
		got := ""
		if sw.Arg != nil {
			got = *sw.Arg
		}
		if got != w.arg {
			t.Fatalf("switch %s: expected arg %q, got %q", w.name, w.arg, got)
		}
	}
}

func TestParseInlineBlockAndList(t *testing.T) {
	doc, err := dsl.ParseString("scene X v2 {\n  meta { keywords: [\"a\", \"b\", \"c\"]; title: x }\n}\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	meta := doc.Sections[0].Meta
	if len(meta.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(meta.Statements))
	}
	if items := meta.Statements[0].Property.Value.List.Items; len(items) != 3 {
		t.Fatalf("expected 3 keywords, got %d", len(items))
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown section":   "scene X v1 {\n  page A4 {\n  }\n}\n",
		"bare string":       "scene X v1 {\n  caption x {\n    \"text\"\n  }\n}\n",
		"inline object":     "scene X v1 {\n  caption x {\n    font: { src: \"a.ttf\" }\n  }\n}\n",
		"two switch args":   "scene X v1 {\n  caption x {\n    shadow 2px 4px\n  }\n}\n",
		"missing value":     "scene X v1 {\n  caption x {\n    text:\n  }\n}\n",
		"unterminated list": "scene X v1 {\n  meta {\n    keywords: [\"a\"\n  }\n}\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := dsl.ParseString(src); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}
