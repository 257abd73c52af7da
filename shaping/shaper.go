// Package shaping turns logical caption lines into positioned glyph runs in
// left-to-right visual order, so that a strictly left-to-right glyph drawer can
// render joined right-to-left script. Glyph substitution and positioning come from
// the HarfBuzz port in github.com/go-text/typesetting; directional runs come from
// golang.org/x/text/unicode/bidi.
package shaping

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	hb "github.com/go-text/typesetting/shaping"
	"go.uber.org/zap"
	"golang.org/x/image/math/fixed"
)

// ErrDegraded reports that a line could not be shaped; callers draw the logical text instead.
var ErrDegraded = errors.New("shaping degraded")

// Face 是可供整形的字体，应与绘制使用同一份字体数据，保证字形 ID 一致。
type Face struct {
	face *font.Face
	upem float64
}

// ParseFace parses TrueType/OpenType font data for shaping.
func ParseFace(data []byte) (*Face, error) {
	f, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析整形字体失败: %w", err)
	}
	upem := float64(f.Upem())
	if upem <= 0 {
		return nil, fmt.Errorf("字体 unitsPerEm 无效")
	}
	return &Face{face: f, upem: upem}, nil
}

// Upem returns the font design units per em.
func (f *Face) Upem() float64 { return f.upem }

// Glyph 是视觉顺序中的一个字形，数值均为字体单位。
type Glyph struct {
	ID       uint32
	XAdvance float64
	XOffset  float64
	YOffset  float64 // 向上为正
	Cluster  int     // 对应逻辑文本中的 rune 下标
}

// Line 是整形后的一行。
type Line struct {
	Text    string  // 逻辑顺序原文
	Glyphs  []Glyph // 从左到右的视觉顺序
	Advance float64 // 字体单位
	Upem    float64
	RTL     bool // 段落基础方向
}

// Scale returns the px per font unit at size.
func (l Line) Scale(size float64) float64 {
	if l.Upem <= 0 {
		return 0
	}
	return size / l.Upem
}

// Width returns the advance of the line in px at size.
func (l Line) Width(size float64) float64 { return l.Advance * l.Scale(size) }

// Shaper converts one already-wrapped logical line into a visual-order glyph run for face.
type Shaper interface {
	Shape(face *Face, line string) (Line, error)
}

// Options is the fixed shaping configuration. Letter joining and the required
// ligatures are always applied by the shaper.
type Options struct {
	KeepHarakat bool // keep diacritics; never silently dropped when set
}

// DefaultOptions keeps diacritics.
func DefaultOptions() Options {
	return Options{KeepHarakat: true}
}

// HarfBuzz shapes lines with the go-text HarfBuzz port.
// The configuration is read-only after construction, so one value is shared by all workers.
type HarfBuzz struct {
	opts Options
}

var _ Shaper = (*HarfBuzz)(nil)

// New creates a shaper with an immutable configuration.
func New(opts Options) *HarfBuzz {
	return &HarfBuzz{opts: opts}
}

// Shape implements Shaper.
func (h *HarfBuzz) Shape(face *Face, line string) (out Line, err error) {
	if face == nil || face.face == nil {
		return Line{}, fmt.Errorf("缺少整形字体: %w", ErrDegraded)
	}
	if strings.TrimSpace(line) == "" {
		return Line{}, fmt.Errorf("empty line: %w", ErrDegraded)
	}
	if !utf8.ValidString(line) || strings.ContainsRune(line, utf8.RuneError) {
		return Line{}, fmt.Errorf("invalid code point in %q: %w", line, ErrDegraded)
	}
	defer func() {
		if rec := recover(); rec != nil {
			out, err = Line{}, fmt.Errorf("shaper panicked: %v: %w", rec, ErrDegraded)
		}
	}()

	text := line
	if !h.opts.KeepHarakat {
		text = StripMarks(text)
	}
	runes := []rune(text)
	runs, rtl, err := visualRuns(text)
	if err != nil {
		return Line{}, fmt.Errorf("bidi reorder: %v: %w", err, ErrDegraded)
	}

	// HarfbuzzShaper 内部缓存不可并发使用，每次调用单独创建
	var shaper hb.HarfbuzzShaper
	out = Line{Text: line, Upem: face.upem, RTL: rtl}
	for _, run := range runs {
		script := runScript(runes[run.start:run.end])
		dir := di.DirectionLTR
		if run.rtl {
			dir = di.DirectionRTL
		}
		shaped := shaper.Shape(hb.Input{
			Text:      runes,
			RunStart:  run.start,
			RunEnd:    run.end,
			Direction: dir,
			Face:      face.face,
			Size:      fixed.I(int(face.upem)), // 以 upem 为字号，输出即字体单位
			Script:    script,
			Language:  scriptLanguage(script),
		})
		for _, g := range shaped.Glyphs {
			out.Glyphs = append(out.Glyphs, Glyph{
				ID:       uint32(g.GlyphID),
				XAdvance: fromFixed(g.XAdvance),
				XOffset:  fromFixed(g.XOffset),
				YOffset:  fromFixed(g.YOffset),
				Cluster:  g.ClusterIndex,
			})
		}
		out.Advance += fromFixed(shaped.Advance)
	}
	if len(out.Glyphs) == 0 {
		return Line{}, fmt.Errorf("no glyphs for %q: %w", line, ErrDegraded)
	}
	return out, nil
}

// Display shapes line best-effort: on failure it logs a warning and reports false,
// and the caller draws the logical text unchanged.
func Display(s Shaper, face *Face, line string, log *zap.Logger) (Line, bool) {
	if s == nil {
		return Line{Text: line}, false
	}
	shaped, err := s.Shape(face, line)
	if err != nil {
		if log != nil {
			log.Warn("shaping degraded, drawing logical text", zap.String("line", line), zap.Error(err))
		}
		return Line{Text: line}, false
	}
	return shaped, true
}

// StripMarks removes nonspacing marks (harakat) from s.
func StripMarks(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
}

func runScript(runes []rune) language.Script {
	for _, r := range runes {
		s := language.LookupScript(r)
		if s != language.Common && s != language.Inherited {
			return s
		}
	}
	return language.Latin
}

func scriptLanguage(s language.Script) language.Language {
	if s == language.Arabic {
		return language.NewLanguage("ar")
	}
	return language.NewLanguage("en")
}

func fromFixed(v fixed.Int26_6) float64 { return float64(v) / 64 }
