package layout

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

const (
	defaultSizeStep     = 2.0
	defaultFallbackSize = 40.0
	defaultLineSpacing  = 1.25
)

// FitOptions 描述字号搜索的边界，单位均为 px。
type FitOptions struct {
	MaxWidth     float64
	StartSize    float64
	MinSize      float64
	Step         float64
	SafetyMargin float64
	Fallback     FontResource // 字体不可用时改用的内置字体，为空时使用 DefaultFont
	FallbackSize float64      // 默认字体的起始字号，会被限制在 [MinSize, StartSize] 内
}

func (o FitOptions) normalized() FitOptions {
	if o.Step <= 0 {
		o.Step = defaultSizeStep
	}
	if o.MinSize <= 0 {
		o.MinSize = 1
	}
	if o.StartSize < o.MinSize {
		o.StartSize = o.MinSize
	}
	if o.FallbackSize <= 0 {
		o.FallbackSize = defaultFallbackSize
	}
	o.FallbackSize = math.Min(math.Max(o.FallbackSize, o.MinSize), o.StartSize)
	if o.Fallback.Src == "" {
		o.Fallback = DefaultFont
	}
	return o
}

// MaxSteps returns the number of measurements one search performs at most:
// every candidate above MinSize plus the final MinSize measurement.
// A font fallback runs a second search that starts no higher than StartSize.
func (o FitOptions) MaxSteps() int {
	o = o.normalized()
	return int(math.Ceil((o.StartSize-o.MinSize)/o.Step)) + 1
}

// FitResult 是字号搜索的结果。
type FitResult struct {
	Font     FontResource
	Size     float64
	Metrics  Metrics
	Overflow bool
	Fallback bool
	Steps    int
}

// Fit 从 StartSize 开始按 Step 递减，返回第一个使所有行宽都小于 MaxWidth-SafetyMargin 的字号。
// 行宽随字号单调不减，因此最多测量 MaxSteps 次即可终止。
// 没有字号满足约束时返回 MinSize 并标记 Overflow。
// 字体无法加载时改用 Fallback 字体，从 FallbackSize 起执行同样的搜索，结果仍位于 [MinSize, StartSize]。
func Fit(lines []string, font FontResource, opts FitOptions, m Measurer) (FitResult, error) {
	if m == nil {
		return FitResult{}, fmt.Errorf("measurer 不能为空")
	}
	opts = opts.normalized()

	res, err := search(lines, font, opts.StartSize, opts, m)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrFontUnavailable) {
		return FitResult{}, err
	}
	fb, ferr := search(lines, opts.Fallback, opts.FallbackSize, opts, m)
	if ferr != nil {
		return FitResult{}, fmt.Errorf("默认字体测量失败: %w", ferr)
	}
	fb.Fallback = true
	fb.Steps += res.Steps
	return fb, nil
}

func search(lines []string, font FontResource, start float64, opts FitOptions, m Measurer) (FitResult, error) {
	limit := opts.MaxWidth - opts.SafetyMargin
	steps := 0
	for i := 0; ; i++ {
		size := start - float64(i)*opts.Step
		if size <= opts.MinSize {
			break
		}
		metrics, err := m.Measure(font, size, lines)
		steps++
		if err != nil {
			return FitResult{Steps: steps}, err
		}
		if metrics.MaxWidth() < limit {
			return FitResult{Font: font, Size: size, Metrics: metrics, Steps: steps}, nil
		}
	}

	metrics, err := m.Measure(font, opts.MinSize, lines)
	steps++
	if err != nil {
		return FitResult{Steps: steps}, err
	}
	return FitResult{
		Font:     font,
		Size:     opts.MinSize,
		Metrics:  metrics,
		Overflow: metrics.MaxWidth() >= limit,
		Steps:    steps,
	}, nil
}

// Layout 对单个 TextBlock 依次执行折行、字号搜索（含按字体整形后的测量）与包围盒计算。
// 右到左文本必须先按逻辑顺序折行，再由后端逐行整形。
func Layout(block TextBlock, env Env) (Result, error) {
	log := env.logger().With(zap.String("block", block.Name))

	logical := Wrap(block.Text, block.MaxChars)
	if len(logical) == 0 {
		return Result{}, fmt.Errorf("文本块 %s 内容为空", block.Name)
	}

	maxWidth := block.MaxWidth
	if maxWidth <= 0 {
		maxWidth = env.FrameWidth
	}
	fit, err := Fit(logical, block.Font, FitOptions{
		MaxWidth:     maxWidth,
		StartSize:    block.StartSize,
		MinSize:      block.MinSize,
		Step:         env.SizeStep,
		SafetyMargin: env.SafetyMargin,
		Fallback:     DefaultFontFor(block.Script),
		FallbackSize: env.FallbackSize,
	}, env.Measurer)
	if err != nil {
		return Result{}, fmt.Errorf("文本块 %s 字号计算失败: %w", block.Name, err)
	}
	if fit.Fallback {
		log.Warn("font unavailable, using default font",
			zap.String("font", block.Font.Src), zap.String("fallback", fit.Font.Src), zap.Float64("size", fit.Size))
	}
	if fit.Metrics.Degraded {
		log.Warn("shaping degraded, caption measured from logical text")
	}
	if fit.Overflow {
		log.Warn("no font size fits the caption width",
			zap.Error(ErrOverflow), zap.Float64("size", fit.Size), zap.Float64("maxWidth", maxWidth))
	}

	factor := env.LineSpacing
	if factor <= 0 {
		factor = defaultLineSpacing
	}
	spacing := fit.Size * factor

	lines := make([]TextLine, len(logical))
	for i := range logical {
		w := 0.0
		if i < len(fit.Metrics.Widths) {
			w = fit.Metrics.Widths[i]
		}
		lines[i] = TextLine{Text: logical[i], Width: w}
	}

	return Result{
		Block:       block.Name,
		Script:      block.Script,
		Lines:       lines,
		Font:        fit.Font,
		FontSize:    fit.Size,
		LineSpacing: spacing,
		Ascent:      fit.Metrics.Ascent,
		Descent:     fit.Metrics.Descent,
		Box:         BlockBounds(fit.Metrics.Widths, fit.Metrics.Ascent, fit.Metrics.Descent, spacing, block.AnchorY, env.FrameWidth),
		Color:       block.Color,
		Style:       block.Style,
		Overflow:    fit.Overflow,
		Fallback:    fit.Fallback,
		Degraded:    fit.Metrics.Degraded,
	}, nil
}
