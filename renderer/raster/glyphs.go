package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/freetype/raster"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/versereel/shaping"
)

// drawGlyphs paints a shaped run with its pen starting at (x, baseline).
// Outlines come from sfnt in px with y pointing down, the rasterizer fills them with non-zero winding.
func drawGlyphs(dst *image.RGBA, f *sfnt.Font, run shaping.Line, size, x, baseline float64, c color.Color) error {
	b := dst.Bounds()
	r := raster.NewRasterizer(b.Dx(), b.Dy())
	r.UseNonZeroWinding = true

	var buf sfnt.Buffer
	k := run.Scale(size)
	ppem := toFixed(size)
	pen := x
	for _, g := range run.Glyphs {
		segs, err := f.LoadGlyph(&buf, sfnt.GlyphIndex(g.ID), ppem, nil)
		if err != nil {
			return fmt.Errorf("读取字形 %d 失败: %w", g.ID, err)
		}
		origin := fixed.Point26_6{X: toFixed(pen + g.XOffset*k), Y: toFixed(baseline - g.YOffset*k)}
		addOutline(r, segs, origin)
		pen += g.XAdvance * k
	}

	p := raster.NewRGBAPainter(dst)
	p.SetColor(c)
	r.Rasterize(p)
	return nil
}

// addOutline feeds glyph contours to r. Start 不会闭合上一条轮廓，这里显式补一条回到起点的线段。
func addOutline(r *raster.Rasterizer, segs sfnt.Segments, origin fixed.Point26_6) {
	var start, last fixed.Point26_6
	open := false
	closePath := func() {
		if open && last != start {
			r.Add1(start)
		}
		open = false
	}
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			closePath()
			start = s.Args[0].Add(origin)
			last = start
			r.Start(start)
			open = true
		case sfnt.SegmentOpLineTo:
			last = s.Args[0].Add(origin)
			r.Add1(last)
		case sfnt.SegmentOpQuadTo:
			last = s.Args[1].Add(origin)
			r.Add2(s.Args[0].Add(origin), last)
		case sfnt.SegmentOpCubeTo:
			last = s.Args[2].Add(origin)
			r.Add3(s.Args[0].Add(origin), s.Args[1].Add(origin), last)
		}
	}
	closePath()
}
