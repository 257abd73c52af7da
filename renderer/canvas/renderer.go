package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/versereel/fonts"
	"github.com/ByLCY/versereel/layout"
	"github.com/ByLCY/versereel/renderer"
)

const (
	// 校样按 96 DPI 将像素换算为毫米
	pxToMm = 25.4 / 96
	pxToPt = 72.0 / 96

	annotationSize = 24 // px
	boxPadding     = 20 // px
)

// Renderer draws layout frames into a proof PDF via github.com/tdewolff/canvas.
// Captions are drawn from their logical text so the proof can be checked
// against the source verse independently of the raster shaping path.
type Renderer struct {
	baseDir string

	// injected resources
	fontBlobs map[string][]byte // by unique name
	meta      Meta
	annotate  bool

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily
	fallbacks    map[layout.ScriptKind]*canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Meta 写入 PDF 文档信息。
type Meta struct {
	Title    string
	Subject  string
	Author   string
	Creator  string
	Keywords []string
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir  string
	Fonts    map[string]Resource // built-in fonts accessible via built-in:<name>
	Meta     Meta
	Annotate bool // 在每个字幕块下方标注字号与降级状态
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		fontBlobs:    map[string][]byte{},
		meta:         opts.Meta,
		annotate:     opts.Annotate,
		fontFamilies: map[string]*canvas.FontFamily{},
		fallbacks:    map[layout.ScriptKind]*canvas.FontFamily{},
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
			data, _ := os.ReadFile(res.Path) // ignore error here; will be caught when actually used
			if len(data) > 0 {
				r.fontBlobs[name] = data
			}
		}
	}
	return r
}

// Render renders a single frame into a one-page PDF.
func (r *Renderer) Render(frame *layout.Frame) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("渲染画面为空")
	}
	return r.RenderSheet([]*layout.Frame{frame})
}

// RenderSheet renders every frame on its own page.
func (r *Renderer) RenderSheet(frames []*layout.Frame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("缺少可渲染的画面")
	}
	for i, f := range frames {
		if f == nil || f.Width <= 0 || f.Height <= 0 {
			return nil, fmt.Errorf("第 %d 个画面尺寸无效", i+1)
		}
	}

	var buf bytes.Buffer
	first := frames[0]
	writer := pdf.New(&buf, mm(first.Width), mm(first.Height), nil)
	r.applyMeta(writer)
	for i, frame := range frames {
		if i > 0 {
			writer.NewPage(mm(frame.Width), mm(frame.Height))
		}
		c := canvas.New(mm(frame.Width), mm(frame.Height))
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawFrame(ctx, frame); err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF) {
	if writer == nil {
		return
	}
	keywords := strings.Join(r.meta.Keywords, ", ")
	writer.SetInfo(r.meta.Title, r.meta.Subject, keywords, r.meta.Author, r.meta.Creator)
}

func (r *Renderer) drawFrame(ctx *canvas.Context, frame *layout.Frame) error {
	w, h := mm(frame.Width), mm(frame.Height)
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.SetFillColor(colorFromLayout(frame.Background))
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
	if frame.Dim > 0 {
		ctx.SetFillColor(color.NRGBA{A: uint8(min(frame.Dim, 1) * 255)})
		ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
	}

	for _, caption := range frame.Captions {
		if err := r.drawCaption(ctx, caption, frame.Width); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawCaption(ctx *canvas.Context, res layout.Result, frameW int) error {
	if len(res.Lines) == 0 {
		return nil
	}
	face, err := r.fontFace(res.Font, res.Script, res.FontSize*pxToPt, res.Color)
	if err != nil {
		return fmt.Errorf("字幕 %s 字体不可用: %w", res.Block, err)
	}

	box := res.Box.Inset(boxPadding)
	if !res.Style.NoBox {
		alpha := uint8(150)
		if a := res.Style.BoxAlpha; a > 0 && a <= 255 {
			alpha = uint8(a)
		}
		ctx.SetFillColor(color.NRGBA{A: alpha})
		ctx.DrawPath(px(box.X), px(box.Y), canvas.Rectangle(px(box.Width), px(box.Height)))
	}

	// 基线与光栅渲染共用同一行距
	baselines := layout.Baselines(len(res.Lines), res.Ascent, res.LineSpacing, res.Box.Y)
	centerX := px(float64(frameW) / 2)
	for i, line := range res.Lines {
		ctx.DrawText(centerX, px(baselines[i]), canvas.NewTextLine(face, line.Text, canvas.Center))
	}

	if r.annotate {
		return r.drawAnnotation(ctx, res, box)
	}
	return nil
}

func (r *Renderer) drawAnnotation(ctx *canvas.Context, res layout.Result, box layout.Rect) error {
	col := layout.Color{R: 160, G: 160, B: 160}
	if res.Overflow || res.Fallback || res.Degraded {
		col = layout.Color{R: 230, G: 40, B: 40}
	}
	face, err := r.fontFace(layout.DefaultFont, layout.ScriptLatin, annotationSize*pxToPt, col)
	if err != nil {
		return err
	}
	ctx.DrawText(px(box.X), px(box.Bottom()+annotationSize), canvas.NewTextLine(face, annotation(res), canvas.Left))
	return nil
}

// annotation 汇总字幕块的排版状态，例如 "ar 80px 3 lines overflow"。
func annotation(res layout.Result) string {
	parts := []string{res.Block, fmt.Sprintf("%gpx", res.FontSize), fmt.Sprintf("%d lines", len(res.Lines))}
	if res.Overflow {
		parts = append(parts, "overflow")
	}
	if res.Fallback {
		parts = append(parts, "fallback-font")
	}
	if res.Degraded {
		parts = append(parts, "unshaped")
	}
	return strings.Join(parts, " ")
}

func (r *Renderer) fontFace(font layout.FontResource, script layout.ScriptKind, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily(font, script)
	if err != nil {
		return nil, err
	}
	return family.Face(sizePt, colorFromLayout(col), canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource, script layout.ScriptKind) (*canvas.FontFamily, error) {
	key := fontCacheKey(font, script)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}

	familyName := font.Name
	if familyName == "" {
		familyName = "Caption"
	}
	family := canvas.NewFontFamily(familyName)
	if err := r.loadFontIntoFamily(family, font); err != nil {
		fallback, fbErr := r.fallback(script)
		if fbErr != nil {
			return nil, err
		}
		r.fontFamilies[key] = fallback
		return fallback, nil
	}
	r.fontFamilies[key] = family
	return family, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font layout.FontResource) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, canvas.FontRegular)
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	if font.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	src := font.Src
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

// fallback 返回能绘制该文字的内置字体，调用方需持有 fontMu。
func (r *Renderer) fallback(script layout.ScriptKind) (*canvas.FontFamily, error) {
	if family, ok := r.fallbacks[script]; ok {
		return family, nil
	}
	data, err := fonts.Load(layout.DefaultFontFor(script).Src)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("versereel-fallback-" + script.String())
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbacks[script] = family
	return family, nil
}

func fontCacheKey(font layout.FontResource, script layout.ScriptKind) string {
	return fmt.Sprintf("%s|%s|%s", font.Name, font.Src, script)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, float64(c.Alpha())/255.0)
}

// mm 将整数像素尺寸转换为毫米。
func mm(v int) float64 { return float64(v) * pxToMm }

// px 将像素坐标转换为毫米。
func px(v float64) float64 { return v * pxToMm }
