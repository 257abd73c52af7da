package canvasrenderer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/versereel/fonts"
	"github.com/ByLCY/versereel/layout"
)

func sampleFrame() *layout.Frame {
	return &layout.Frame{
		Width:  1080,
		Height: 1920,
		Dim:    0.5,
		Captions: []layout.Result{{
			Block:       "fr",
			Lines:       []layout.TextLine{{Text: "Dis : Il est Allah,", Width: 400}, {Text: "Unique.", Width: 150}},
			Font:        layout.DefaultFont,
			FontSize:    40,
			LineSpacing: 50,
			Ascent:      37,
			Descent:     9,
			Box:         layout.Rect{X: 340, Y: 1100, Width: 400, Height: 96},
			Color:       layout.Color{R: 255, G: 255},
		}},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRendererWithOptions(Options{Meta: Meta{Title: "Al-Ikhlas 112:1"}, Annotate: true})
	data, err := r.Render(sampleFrame())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected PDF header, got %q", data[:min(len(data), 8)])
	}
}

func TestRenderSheetRejectsEmptyInput(t *testing.T) {
	r := NewRenderer("")
	if _, err := r.RenderSheet(nil); err == nil {
		t.Fatal("expected error for empty sheet")
	}
	if _, err := r.RenderSheet([]*layout.Frame{{Width: 0, Height: 10}}); err == nil {
		t.Fatal("expected error for invalid frame size")
	}
}

// 字体路径不可用时回退到内置字体，而不是中断校样。
func TestMissingFontFallsBack(t *testing.T) {
	r := NewRenderer(t.TempDir())
	frame := sampleFrame()
	frame.Captions[0].Font = layout.FontResource{Name: "ar", Src: "assets/fonts/arabic.ttf"}
	if _, err := r.Render(frame); err != nil {
		t.Fatalf("expected fallback font, got %v", err)
	}
}

// 相对字体路径与光栅渲染一致：未设置资源目录时相对工作目录解析。
func TestRelativeFontPathWithoutBaseDir(t *testing.T) {
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "latin.ttf"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Chdir(dir)

	r := NewRenderer("")
	got, err := r.loadFontBytes(layout.FontResource{Src: "latin.ttf"})
	if err != nil {
		t.Fatalf("relative path without base dir: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("unexpected font bytes")
	}
	if _, err := r.loadFontBytes(layout.FontResource{Src: "built-in:missing"}); err == nil {
		t.Fatal("expected error for unknown built-in font")
	}
}

func TestMissingArabicFontUsesRTLFallback(t *testing.T) {
	r := NewRenderer(t.TempDir())
	family, err := r.ensureFontFamily(layout.FontResource{Name: "ar", Src: "assets/fonts/arabic.ttf"}, layout.ScriptRTL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if family != r.fallbacks[layout.ScriptRTL] || family == nil {
		t.Fatal("expected the rtl built-in family")
	}
}

func TestAnnotationFlags(t *testing.T) {
	got := annotation(layout.Result{Block: "ar", FontSize: 60, Lines: make([]layout.TextLine, 3), Overflow: true, Degraded: true})
	for _, want := range []string{"ar", "60px", "3 lines", "overflow", "unshaped"} {
		if !strings.Contains(got, want) {
			t.Fatalf("annotation %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "fallback-font") {
		t.Fatalf("unexpected fallback flag in %q", got)
	}
}
