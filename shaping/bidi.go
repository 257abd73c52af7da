package shaping

import (
	"golang.org/x/text/unicode/bidi"
)

type dirRun struct {
	start, end int // rune 下标，半开区间
	rtl        bool
}

// visualRuns splits a single line into directional runs and returns them in
// left-to-right visual order, together with the paragraph direction.
// The same first-strong decision sets the paragraph level and orders the runs,
// so neutrals between runs resolve to the side they are drawn on.
func visualRuns(s string) ([]dirRun, bool, error) {
	rtl := baseRTL(s)
	var opts []bidi.Option
	if rtl {
		// x/text 仅在显式指定 RightToLeft 时把段落层级固定为 1，否则按首个强字符推断
		opts = append(opts, bidi.DefaultDirection(bidi.RightToLeft))
	}
	var p bidi.Paragraph
	if _, err := p.SetString(s, opts...); err != nil {
		return nil, rtl, err
	}
	o, err := p.Order()
	if err != nil {
		return nil, rtl, err
	}

	// x/text 按逻辑顺序返回方向段
	runs := make([]dirRun, 0, o.NumRuns())
	for i := 0; i < o.NumRuns(); i++ {
		r := o.Run(i)
		start, last := r.Pos()
		runs = append(runs, dirRun{start: start, end: last + 1, rtl: r.Direction() == bidi.RightToLeft})
	}
	if rtl {
		for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
			runs[i], runs[j] = runs[j], runs[i]
		}
	}
	return runs, rtl, nil
}

// baseRTL applies rule P2: the first strong character decides the paragraph direction.
// Lines without strong characters default to right-to-left.
func baseRTL(s string) bool {
	for _, r := range s {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return false
		case bidi.R, bidi.AL:
			return true
		}
	}
	return true
}
