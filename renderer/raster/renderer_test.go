package raster

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/ByLCY/versereel/layout"
)

const (
	frameW = 1080
	frameH = 1920
)

func layoutBlock(t *testing.T, r *Renderer, block layout.TextBlock, spacing float64) layout.Result {
	t.Helper()
	res, err := layout.Layout(block, layout.Env{Measurer: r, FrameWidth: frameW, LineSpacing: spacing})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	return res
}

func latinBlock() layout.TextBlock {
	return layout.TextBlock{
		Name:      "fr",
		Text:      "Say He is Allah the One and Only",
		Color:     layout.Color{R: 255, G: 255, B: 0},
		Font:      layout.DefaultFont,
		AnchorY:   1100,
		MaxWidth:  900,
		StartSize: 40,
		MinSize:   20,
		MaxChars:  12,
	}
}

func TestMeasureMissingFont(t *testing.T) {
	r := NewRenderer(t.TempDir())
	_, err := r.Measure(layout.FontResource{Name: "ar", Src: "fonts/missing.ttf"}, 40, []string{"x"})
	if !errors.Is(err, layout.ErrFontUnavailable) {
		t.Fatalf("expected ErrFontUnavailable, got %v", err)
	}
}

func TestMeasureWidthGrowsWithSize(t *testing.T) {
	r := NewRenderer("")
	prev := 0.0
	for _, size := range []float64{12, 20, 40, 80} {
		m, err := r.Measure(layout.DefaultFont, size, []string{"Dis : Il est Allah"})
		if err != nil {
			t.Fatalf("measure: %v", err)
		}
		if m.Widths[0] < prev {
			t.Fatalf("width shrank at size %v: %v < %v", size, m.Widths[0], prev)
		}
		if m.Ascent <= 0 || m.Descent <= 0 {
			t.Fatalf("expected positive metrics, got %+v", m)
		}
		prev = m.Widths[0]
	}
}

// 前景色像素必须全部落在排版计算出的包围盒内。
func TestRenderLayerInkInsideBox(t *testing.T) {
	r := NewRenderer("")
	for _, spacing := range []float64{1.0, 1.25, 1.8} {
		res := layoutBlock(t, r, latinBlock(), spacing)
		if len(res.Lines) < 2 {
			t.Fatalf("expected wrapped lines, got %d", len(res.Lines))
		}
		img, err := r.RenderLayer(res, frameW, frameH)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		ink := inkBounds(img)
		if ink.Empty() {
			t.Fatalf("spacing %v: no foreground pixels drawn", spacing)
		}
		const tol = 2
		box := res.Box
		if float64(ink.Min.X) < box.X-tol || float64(ink.Max.X) > box.Right()+tol ||
			float64(ink.Min.Y) < box.Y-tol || float64(ink.Max.Y) > box.Bottom()+tol {
			t.Fatalf("spacing %v: ink %v outside box %+v", spacing, ink, box)
		}
	}
}

func TestRenderLayerDrawsBackingBox(t *testing.T) {
	r := NewRendererWithOptions(Options{BoxAlpha: 150, BoxPadding: 20})
	res := layoutBlock(t, r, latinBlock(), 1.25)
	img, err := r.RenderLayer(res, frameW, frameH)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// 内边距区域只有背景框
	x, y := int(res.Box.X)-10, int(res.Box.Y)-10
	if a := img.RGBAAt(x, y).A; a != 150 {
		t.Fatalf("expected backing alpha 150 at (%d,%d), got %d", x, y, a)
	}
	if a := img.RGBAAt(5, 5).A; a != 0 {
		t.Fatalf("expected transparent corner, got alpha %d", a)
	}
}

func TestRenderLayerHonorsBlockStyle(t *testing.T) {
	r := NewRenderer("")
	block := latinBlock()

	block.Style = layout.Style{NoBox: true, NoShadow: true}
	res := layoutBlock(t, r, block, 1.25)
	img, err := r.RenderLayer(res, frameW, frameH)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	x, y := int(res.Box.X)-10, int(res.Box.Y)-10
	if a := img.RGBAAt(x, y).A; a != 0 {
		t.Fatalf("box off: expected transparent padding, got alpha %d", a)
	}
	if n := opaqueDark(img); n != 0 {
		t.Fatalf("shadow off: found %d shadow pixels", n)
	}

	block.Style = layout.Style{BoxAlpha: 60, ShadowOffset: 8}
	res = layoutBlock(t, r, block, 1.25)
	if img, err = r.RenderLayer(res, frameW, frameH); err != nil {
		t.Fatalf("render: %v", err)
	}
	if a := img.RGBAAt(x, y).A; a != 60 {
		t.Fatalf("expected backing alpha 60, got %d", a)
	}
	if opaqueDark(img) == 0 {
		t.Fatal("expected shadow pixels")
	}
}

// opaqueDark counts near-black pixels that are at least as opaque as the shadow.
func opaqueDark(img *image.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.A > 200 && c.R < 40 && c.G < 40 {
				n++
			}
		}
	}
	return n
}

func TestRenderLayerFallsBackOnMissingFont(t *testing.T) {
	r := NewRenderer(t.TempDir())
	block := latinBlock()
	block.Font = layout.FontResource{Name: "latin", Src: "assets/fonts/latin.ttf"}
	res := layoutBlock(t, r, block, 1.25)
	if !res.Fallback || res.Font != layout.DefaultFont {
		t.Fatalf("expected default font fallback, got %+v", res.Font)
	}
	img, err := r.RenderLayer(res, frameW, frameH)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if inkBounds(img).Empty() {
		t.Fatal("fallback font drew nothing")
	}
}

func arabicBlock() layout.TextBlock {
	return layout.TextBlock{
		Name:      "ar",
		Text:      "قل هو الله احد الله الصمد",
		Script:    layout.ScriptRTL,
		Color:     layout.Color{R: 255, G: 255, B: 0},
		Font:      layout.FontResource{Name: "arabic", Src: "assets/fonts/arabic.ttf"},
		AnchorY:   500,
		MaxWidth:  900,
		StartSize: 60,
		MinSize:   30,
		MaxChars:  14,
	}
}

func TestMeasureRejectsFontWithoutArabicGlyphs(t *testing.T) {
	_, err := NewRenderer("").Measure(layout.DefaultFont, 40, []string{"قل هو"})
	if !errors.Is(err, layout.ErrFontUnavailable) {
		t.Fatalf("expected ErrFontUnavailable for a latin-only font, got %v", err)
	}
}

// 阿拉伯文字块的字体缺失时退回内置的阿拉伯字体，并且能画出字形。
func TestRenderLayerArabicFallsBackToRTLFont(t *testing.T) {
	r := NewRenderer(t.TempDir())
	res := layoutBlock(t, r, arabicBlock(), 1.25)
	if !res.Fallback || res.Font != layout.DefaultRTLFont {
		t.Fatalf("expected rtl default font, got %+v", res.Font)
	}
	if res.Degraded {
		t.Fatal("arabic lines must be shaped with the rtl default font")
	}
	img, err := r.RenderLayer(res, frameW, frameH)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	ink := inkBounds(img)
	if ink.Empty() {
		t.Fatal("arabic caption drew nothing")
	}
	const tol = 2
	box := res.Box
	if float64(ink.Min.X) < box.X-tol || float64(ink.Max.X) > box.Right()+tol ||
		float64(ink.Min.Y) < box.Y-tol || float64(ink.Max.Y) > box.Bottom()+tol {
		t.Fatalf("ink %v outside box %+v", ink, box)
	}
}

func TestMeasureJoinedArabicPair(t *testing.T) {
	r := NewRenderer("")
	m, err := r.Measure(layout.DefaultRTLFont, 40, []string{"قل", "ق ل"})
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if m.Degraded {
		t.Fatal("unexpected degraded measurement")
	}
	if m.Widths[0] <= 0 || m.Widths[0] >= m.Widths[1] {
		t.Fatalf("joined pair must be narrower than the spaced pair: %v", m.Widths)
	}
}

func TestRenderLayerRejectsBadFrame(t *testing.T) {
	if _, err := NewRenderer("").RenderLayer(layout.Result{}, 0, 10); err == nil {
		t.Fatal("expected error for empty frame")
	}
}

func TestRenderProducesPNG(t *testing.T) {
	r := NewRenderer("")
	res := layoutBlock(t, r, latinBlock(), 1.25)
	data, err := r.Render(&layout.Frame{Width: frameW, Height: frameH, Dim: 0.5, Captions: []layout.Result{res}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != frameW || b.Dy() != frameH {
		t.Fatalf("unexpected size %v", b)
	}
}

// inkBounds returns the bounding rectangle of bright yellow foreground pixels.
func inkBounds(img *image.RGBA) image.Rectangle {
	var out image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 128 && c.G > 128 {
				out = out.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return out
}

func TestThumbnailKeepsAspectRatio(t *testing.T) {
	data, err := NewRenderer("").Render(&layout.Frame{Width: 108, Height: 192})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	thumb, err := Thumbnail(data, 54)
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 54 || b.Dy() != 96 {
		t.Fatalf("unexpected thumbnail size %v", b)
	}
	if _, err := Thumbnail(data, 0); err == nil {
		t.Fatal("expected error for zero width")
	}
}
