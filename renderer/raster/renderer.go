package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/versereel/fonts"
	"github.com/ByLCY/versereel/layout"
	"github.com/ByLCY/versereel/renderer"
	"github.com/ByLCY/versereel/shaping"
)

const (
	defaultBoxAlpha     = 150
	defaultBoxPadding   = 20
	defaultShadowOffset = 3
)

// Renderer rasterizes caption layers. Lines are shaped into visual-order glyph
// runs and painted with the github.com/golang/freetype rasterizer; lines that
// cannot be shaped are drawn as logical text.
type Renderer struct {
	baseDir string
	shaper  shaping.Shaper
	log     *zap.Logger

	// injected resources
	fontBlobs map[string][]byte // by unique name

	boxAlpha     uint8
	boxPadding   int
	shadowOffset int

	fontMu sync.Mutex
	fonts  map[string]*fontEntry
}

// fontEntry 同一份字体数据分别用于整形和描边，字形 ID 一致。
type fontEntry struct {
	sf    *sfnt.Font
	shape *shaping.Face // nil 时该字体的所有行降级为逻辑文本
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

// Options configures the raster renderer.
type Options struct {
	BaseDir      string
	Fonts        map[string]Resource // accessible via built-in:<name>
	BoxAlpha     uint8               // backing box opacity, 0 means default
	BoxPadding   int                 // px around the text box, 0 means default
	ShadowOffset int                 // px, 0 means default
	Shaper       shaping.Shaper      // nil means shaping.New(shaping.DefaultOptions())
	Log          *zap.Logger
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a raster renderer rooted at baseDir for resolving font paths.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected fonts and drawing parameters.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		shaper:       opts.Shaper,
		log:          opts.Log,
		fontBlobs:    map[string][]byte{},
		boxAlpha:     opts.BoxAlpha,
		boxPadding:   opts.BoxPadding,
		shadowOffset: opts.ShadowOffset,
		fonts:        map[string]*fontEntry{},
	}
	if r.shaper == nil {
		r.shaper = shaping.New(shaping.DefaultOptions())
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.boxAlpha == 0 {
		r.boxAlpha = defaultBoxAlpha
	}
	if r.boxPadding <= 0 {
		r.boxPadding = defaultBoxPadding
	}
	if r.shadowOffset <= 0 {
		r.shadowOffset = defaultShadowOffset
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // caught when the font is actually used
			if len(data) > 0 {
				r.fontBlobs[name] = data
			}
		}
	}
	return r
}

// Measure implements layout.Measurer using the same shaped runs the renderer draws.
// A font without glyphs for the letters of lines reports layout.ErrFontUnavailable.
func (r *Renderer) Measure(res layout.FontResource, size float64, lines []string) (layout.Metrics, error) {
	e, err := r.loadFont(res)
	if err != nil {
		return layout.Metrics{}, err
	}
	if err := e.covers(lines); err != nil {
		return layout.Metrics{}, fmt.Errorf("字体 %s: %v: %w", res.Src, err, layout.ErrFontUnavailable)
	}
	face, err := e.face(size)
	if err != nil {
		return layout.Metrics{}, err
	}
	defer face.Close()

	m := face.Metrics()
	out := layout.Metrics{Widths: make([]float64, len(lines)), Ascent: fromFixed(m.Ascent), Descent: fromFixed(m.Descent)}
	for i, line := range lines {
		run, ok := shaping.Display(r.shaper, e.shape, line, r.log)
		if !ok {
			out.Degraded = true
			out.Widths[i] = fromFixed(font.MeasureString(face, line))
			continue
		}
		out.Widths[i] = run.Width(size)
	}
	return out, nil
}

// RenderLayer draws one caption block onto a transparent frame-sized raster.
// Order: backing box, shadow, foreground; res.Style can switch off or tune the first two. The bounding box and the baselines
// are both derived from res.LineSpacing.
func (r *Renderer) RenderLayer(res layout.Result, frameW, frameH int) (*image.RGBA, error) {
	if frameW <= 0 || frameH <= 0 {
		return nil, fmt.Errorf("画面尺寸无效: %dx%d", frameW, frameH)
	}
	img := image.NewRGBA(image.Rect(0, 0, frameW, frameH))
	if len(res.Lines) == 0 {
		return img, nil
	}

	e, err := r.loadFont(res.Font)
	if err != nil {
		r.log.Warn("字体不可用，使用内置字体", zap.String("font", res.Font.Src), zap.Error(err))
		if e, err = r.loadFont(layout.DefaultFontFor(res.Script)); err != nil {
			return nil, err
		}
	}
	face, err := e.face(res.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	m := face.Metrics()
	ascent, descent := fromFixed(m.Ascent), fromFixed(m.Descent)
	spacing := res.LineSpacing
	if spacing <= 0 {
		spacing = fromFixed(m.Height)
	}

	texts := res.Texts()
	runs := make([]shaping.Line, len(texts))
	shaped := make([]bool, len(texts))
	widths := make([]float64, len(texts))
	for i, line := range texts {
		runs[i], shaped[i] = shaping.Display(r.shaper, e.shape, line, r.log)
		if shaped[i] {
			widths[i] = runs[i].Width(res.FontSize)
		} else {
			widths[i] = fromFixed(font.MeasureString(face, line))
		}
	}
	box := layout.BlockBounds(widths, ascent, descent, spacing, res.Box.Y, float64(frameW))

	if !res.Style.NoBox {
		alpha := r.boxAlpha
		if a := res.Style.BoxAlpha; a > 0 {
			alpha = uint8(clamp(a))
		}
		backing := toRect(box.Inset(float64(r.boxPadding))).Intersect(img.Bounds())
		draw.Draw(img, backing, image.NewUniform(color.NRGBA{A: alpha}), image.Point{}, draw.Over)
	}

	type pass struct {
		offset float64
		c      color.Color
	}
	var passes []pass
	if !res.Style.NoShadow {
		offset := float64(r.shadowOffset)
		if res.Style.ShadowOffset > 0 {
			offset = res.Style.ShadowOffset
		}
		passes = append(passes, pass{offset, color.Black})
	}
	passes = append(passes, pass{0, toColor(res.Color)})

	baselines := layout.Baselines(len(texts), ascent, spacing, res.Box.Y)
	for _, pass := range passes {
		for i := range texts {
			x := layout.LineX(widths[i], float64(frameW)) + pass.offset
			y := baselines[i] + pass.offset
			if shaped[i] {
				if err := drawGlyphs(img, e.sf, runs[i], res.FontSize, x, y, pass.c); err != nil {
					return nil, fmt.Errorf("绘制字幕行 %q 失败: %w", texts[i], err)
				}
				continue
			}
			d := &font.Drawer{Dst: img, Src: image.NewUniform(pass.c), Face: face}
			d.Dot = fixed.Point26_6{X: toFixed(x), Y: toFixed(y)}
			d.DrawString(texts[i])
		}
	}
	return img, nil
}

// Render composes every caption of the frame over its background and dim layer
// and returns a PNG preview.
func (r *Renderer) Render(frame *layout.Frame) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("画面为空")
	}
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(toColor(frame.Background)), image.Point{}, draw.Src)
	if frame.Dim > 0 {
		dim := color.NRGBA{A: uint8(math.Round(math.Min(frame.Dim, 1) * 255))}
		draw.Draw(img, img.Bounds(), image.NewUniform(dim), image.Point{}, draw.Over)
	}
	for _, caption := range frame.Captions {
		layer, err := r.RenderLayer(caption, frame.Width, frame.Height)
		if err != nil {
			return nil, fmt.Errorf("渲染字幕 %s 失败: %w", caption.Block, err)
		}
		draw.Draw(img, img.Bounds(), layer, image.Point{}, draw.Over)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) loadFont(res layout.FontResource) (*fontEntry, error) {
	key := res.Src
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if e, ok := r.fonts[key]; ok {
		return e, nil
	}
	data, err := r.loadFontBytes(res)
	if err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %v: %w", res.Src, err, layout.ErrFontUnavailable)
	}
	sf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %v: %w", res.Src, err, layout.ErrFontUnavailable)
	}
	e := &fontEntry{sf: sf}
	if e.shape, err = shaping.ParseFace(data); err != nil {
		r.log.Warn("字体无法用于整形，按逻辑文本绘制", zap.String("font", res.Src), zap.Error(err))
	}
	r.fonts[key] = e
	return e, nil
}

func (r *Renderer) loadFontBytes(res layout.FontResource) ([]byte, error) {
	if res.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", res.Name)
	}
	src := res.Src
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	return os.ReadFile(renderer.ResolvePath(r.baseDir, src))
}

// faces are not safe for concurrent use, so one is created per call.
func (e *fontEntry) face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(e.sf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("创建字号 %.1f 的字体失败: %w", size, err)
	}
	return face, nil
}

// covers reports the first letter of lines the font has no glyph for.
func (e *fontEntry) covers(lines []string) error {
	var buf sfnt.Buffer
	for _, line := range lines {
		for _, c := range line {
			if !unicode.IsLetter(c) {
				continue
			}
			idx, err := e.sf.GlyphIndex(&buf, c)
			if err != nil {
				return err
			}
			if idx == 0 {
				return fmt.Errorf("缺少字形 %U", c)
			}
		}
	}
	return nil
}

// EncodePNG writes a rendered layer as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toColor(c layout.Color) color.Color {
	return color.NRGBA{R: uint8(clamp(c.R)), G: uint8(clamp(c.G)), B: uint8(clamp(c.B)), A: uint8(c.Alpha())}
}

func toRect(r layout.Rect) image.Rectangle {
	return image.Rect(int(math.Floor(r.X)), int(math.Floor(r.Y)), int(math.Ceil(r.Right())), int(math.Ceil(r.Bottom())))
}

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

func fromFixed(v fixed.Int26_6) float64 { return float64(v) / 64 }

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
