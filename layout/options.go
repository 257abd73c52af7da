package layout

import (
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrFontUnavailable 表示字体无法加载，FontFitter 会退回默认字体。
	ErrFontUnavailable = errors.New("font unavailable")
	// ErrOverflow 表示没有任何字号满足宽度约束（LayoutOverflow），只记录警告。
	ErrOverflow = errors.New("layout overflow")
)

// Metrics 是某一字号下各行的测量结果（px）。
type Metrics struct {
	Widths   []float64
	Ascent   float64
	Descent  float64
	Degraded bool // 至少一行未能整形，宽度按逻辑文本测量
}

// MaxWidth returns the widest measured line.
func (m Metrics) MaxWidth() float64 {
	widest := 0.0
	for _, w := range m.Widths {
		if w > widest {
			widest = w
		}
	}
	return widest
}

// Measurer 使用目标渲染后端的字体度量测量整形后的文本宽度。
// lines 为逻辑顺序文本；整形依赖具体字体，因此由后端完成。
// 字体加载失败或缺少文字所需字形时必须返回包裹 ErrFontUnavailable 的错误。
type Measurer interface {
	Measure(font FontResource, size float64, lines []string) (Metrics, error)
}

// Env 汇总一次排版所需的依赖与参数，由调用方显式构造。
type Env struct {
	Measurer     Measurer
	FrameWidth   float64
	SafetyMargin float64
	SizeStep     float64
	FallbackSize float64
	LineSpacing  float64 // 行距系数（相对字号）
	Log          *zap.Logger
}

func (e Env) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
