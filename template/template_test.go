package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/versereel/config"
	"github.com/ByLCY/versereel/dsl"
	"github.com/ByLCY/versereel/layout"
)

func verseData() map[string]any {
	return map[string]any{
		"verse": map[string]any{
			"surah_name": "Al-Ikhlas",
			"surah":      112,
			"ayah":       1,
			"theme":      "Sincerity",
			"text_rtl":   "قُلْ هُوَ ٱللَّهُ أَحَدٌ",
			"text_latin": "Dis : Il est Allah, Unique.",
		},
	}
}

func TestCompileDefaultTemplate(t *testing.T) {
	doc, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := config.Default().Render
	scene, err := Compile(doc, verseData(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scene.Width != 1080 || scene.Height != 1920 || scene.FPS != 24 || scene.Dim != 0.5 {
		t.Fatalf("unexpected frame %+v", scene)
	}
	if scene.Meta.Title != "Al-Ikhlas 112:1" {
		t.Fatalf("unexpected title %q", scene.Meta.Title)
	}
	if len(scene.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(scene.Blocks))
	}
	ar, fr := scene.Blocks[0], scene.Blocks[1]
	if ar.Script != layout.ScriptRTL || ar.AnchorY != 450 || ar.StartSize != 80 || ar.Color != (layout.Color{R: 255, G: 255, B: 255}) {
		t.Fatalf("unexpected arabic block %+v", ar)
	}
	if fr.Script != layout.ScriptLatin || fr.AnchorY != 1100 || fr.StartSize != 40 || fr.Color != (layout.Color{R: 255, G: 255}) {
		t.Fatalf("unexpected latin block %+v", fr)
	}
	if fr.Text != "Dis : Il est Allah, Unique." || ar.Font.Src != cfg.Arabic.Font {
		t.Fatalf("unexpected bindings %q %q", fr.Text, ar.Font.Src)
	}
}

func TestCompileOverrides(t *testing.T) {
	src := `scene Custom v1 {
  frame {
    background: #102030
    dim: 30%
    fps: 30
    pad: 1.5s
  }
  caption verse rtl {
    text: "${verse.text_rtl}"
    size: 5%
    min-size: 40px
    anchor: 25%
    width: 80%
    wrap: 20
    color: gold
    font: "fonts/amiri.ttf"
  }
}
`
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	scene, err := Compile(doc, verseData(), config.Default().Render)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scene.Name != "Custom" || scene.FPS != 30 || scene.TrailingPad != 1.5 || scene.Dim != 0.3 {
		t.Fatalf("unexpected frame %+v", scene)
	}
	if scene.Background != (layout.Color{R: 0x10, G: 0x20, B: 0x30}) {
		t.Fatalf("unexpected background %+v", scene.Background)
	}
	b := scene.Blocks[0]
	if b.StartSize != 96 || b.MinSize != 40 || b.AnchorY != 480 || b.MaxWidth != 864 || b.MaxChars != 20 {
		t.Fatalf("unexpected block geometry %+v", b)
	}
	if b.Font.Src != "fonts/amiri.ttf" || b.Color != (layout.Color{R: 255, G: 215}) {
		t.Fatalf("unexpected block style %+v", b)
	}
}

func TestCompileCaptionSwitches(t *testing.T) {
	cases := []struct {
		name     string
		switches string
		want     layout.Style
	}{
		{"defaults", "", layout.Style{}},
		{"off", "shadow off\n    box off", layout.Style{NoShadow: true, NoBox: true}},
		{"tuned", "shadow 6px\n    box 40%", layout.Style{ShadowOffset: 6, BoxAlpha: 102}},
		{"alpha", "box 200", layout.Style{BoxAlpha: 200}},
		{"last wins", "shadow off\n    shadow on", layout.Style{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := "scene A v1 {\n  caption x {\n    text: \"a\"\n    " + tc.switches + "\n  }\n}\n"
			doc, err := dsl.ParseString(src)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			scene, err := Compile(doc, verseData(), config.Default().Render)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := scene.Blocks[0].Style; got != tc.want {
				t.Fatalf("style = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"missing binding", "scene A v1 {\n  caption x {\n    text: \"${verse.nope}\"\n  }\n}\n", "verse.nope"},
		{"no captions", "scene A v1 {\n  frame {\n    fps: 24\n  }\n}\n", "未定义任何字幕块"},
		{"duplicate caption", "scene A v1 {\n  caption x {\n    text: \"a\"\n  }\n  caption x {\n    text: \"b\"\n  }\n}\n", "重复"},
		{"unknown script", "scene A v1 {\n  caption x vertical {\n    text: \"a\"\n  }\n}\n", "vertical"},
		{"empty text", "scene A v1 {\n  caption x {\n    text: \" \"\n  }\n}\n", "缺少 text"},
		{"bad dim", "scene A v1 {\n  frame {\n    dim: 2\n  }\n  caption x {\n    text: \"a\"\n  }\n}\n", "dim"},
		{"unknown key", "scene A v1 {\n  caption x {\n    text: \"a\"\n    blink: 1\n  }\n}\n", "blink"},
		{"unknown switch", "scene A v1 {\n  caption x {\n    text: \"a\"\n    blink on\n  }\n}\n", "blink"},
		{"bad shadow", "scene A v1 {\n  caption x {\n    text: \"a\"\n    shadow 10%\n  }\n}\n", "shadow"},
		{"bad box", "scene A v1 {\n  caption x {\n    text: \"a\"\n    box 300\n  }\n}\n", "box"},
		{"switch in frame", "scene A v1 {\n  frame {\n    shadow off\n  }\n  caption x {\n    text: \"a\"\n  }\n}\n", "shadow"},
		{"list as text", "scene A v1 {\n  caption x {\n    text: [\"a\"]\n  }\n}\n", "单个属性值"},
		{"inverted sizes", "scene A v1 {\n  caption x {\n    text: \"a\"\n    size: 10px\n  }\n}\n", "字号范围无效"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := dsl.ParseString(tc.src)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err = Compile(doc, verseData(), config.Default().Render)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verse.reel")
	if err := os.WriteFile(path, []byte(DefaultSource), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Captions()) != 2 {
		t.Fatalf("expected 2 captions, got %d", len(doc.Captions()))
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.reel")); err == nil {
		t.Fatal("expected error for missing template")
	}
}
