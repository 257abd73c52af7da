package layout

// 该文件定义字幕布局的输入与结果类型，供排版、渲染、合成与调试 JSON 共用。
// 所有坐标与尺寸均以像素（px）为单位，原点位于画面左上角。

// ScriptKind 区分需要整形（右到左）的文字与普通拉丁文字。
type ScriptKind int

const (
	ScriptLatin ScriptKind = iota
	ScriptRTL
)

// String returns the DSL keyword for the script kind.
func (k ScriptKind) String() string {
	if k == ScriptRTL {
		return "rtl"
	}
	return "latin"
}

// Color 采用 0-255 的 RGBA 数值；A 为 0 时按不透明处理。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a,omitempty"`
}

// Alpha 返回实际使用的透明度（未设置时视为 255）。
func (c Color) Alpha() int {
	if c.A <= 0 {
		return 255
	}
	return c.A
}

// FontResource 描述字体资源，src 可以是文件路径、embed:* 内置字体或 built-in:* 注入字体。
type FontResource struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

var (
	// DefaultFont 是拉丁文字块字体加载失败时使用的内置字体。
	DefaultFont = FontResource{Name: "default", Src: "embed:go-regular"}
	// DefaultRTLFont 覆盖阿拉伯文字，右到左文字块字体加载失败时使用。
	DefaultRTLFont = FontResource{Name: "default-rtl", Src: "embed:dejavu-sans"}
)

// DefaultFontFor returns the built-in fallback font able to draw the script.
func DefaultFontFor(script ScriptKind) FontResource {
	if script == ScriptRTL {
		return DefaultRTLFont
	}
	return DefaultFont
}

// TextBlock 是一次排版的不可变输入。
type TextBlock struct {
	Name      string       `json:"name"`
	Text      string       `json:"text"`
	Script    ScriptKind   `json:"script"`
	Color     Color        `json:"color"`
	Font      FontResource `json:"font"`
	AnchorY   float64      `json:"anchorY"`  // 文本块顶部的 y 坐标
	MaxWidth  float64      `json:"maxWidth"` // 允许的最大行宽
	StartSize float64      `json:"startSize"`
	MinSize   float64      `json:"minSize"`
	MaxChars  int          `json:"maxChars"` // 折行字符预算，<=0 表示不折行
	Style     Style        `json:"style"`
}

// Style 是字幕块的装饰覆盖，零值表示沿用渲染器默认值。
type Style struct {
	NoShadow     bool    `json:"noShadow,omitempty"`
	ShadowOffset float64 `json:"shadowOffset,omitempty"` // px
	NoBox        bool    `json:"noBox,omitempty"`
	BoxAlpha     int     `json:"boxAlpha,omitempty"` // 1-255
}

// TextLine 表示排版后的一行。Text 保持逻辑顺序，整形与视觉重排由渲染后端按所选字体完成；
// Width 为整形后的宽度。
type TextLine struct {
	Text  string  `json:"text"`
	Width float64 `json:"width"`
}

// Rect 表示轴对齐矩形。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Inset grows the rectangle by pad on every side (negative pad shrinks it).
func (r Rect) Inset(pad float64) Rect {
	return Rect{X: r.X - pad, Y: r.Y - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
}

// Result 是单个 TextBlock 的排版结果，由 CaptionRenderer 消费。
type Result struct {
	Block       string       `json:"block"`
	Script      ScriptKind   `json:"script"`
	Lines       []TextLine   `json:"lines"`
	Font        FontResource `json:"font"`
	FontSize    float64      `json:"fontSize"`
	LineSpacing float64      `json:"lineSpacing"` // 相邻基线间距，测量与绘制共用
	Ascent      float64      `json:"ascent"`
	Descent     float64      `json:"descent"`
	Box         Rect         `json:"box"`
	Color       Color        `json:"color"`
	Style       Style        `json:"style"`
	Overflow    bool         `json:"overflow,omitempty"` // 没有字号满足宽度约束，已退回最小字号
	Fallback    bool         `json:"fallback,omitempty"` // 字体加载失败，使用默认字体
	Degraded    bool         `json:"degraded,omitempty"` // 至少一行整形失败，按逻辑文本绘制
}

// Texts returns the logical text of every line.
func (r Result) Texts() []string {
	out := make([]string, len(r.Lines))
	for i, ln := range r.Lines {
		out[i] = ln.Text
	}
	return out
}

// Frame 汇总一个画面的所有字幕排版结果，供预览与校样渲染使用。
type Frame struct {
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Background Color    `json:"background"`
	Dim        float64  `json:"dim"`
	Captions   []Result `json:"captions"`
}
