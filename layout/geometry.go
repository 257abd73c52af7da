package layout

// 以下几何函数同时被测量（包围盒）与绘制（基线）使用，保证两者使用同一行距。

// BlockBounds 返回多行文本的紧包围盒：宽度取最宽行，高度为
// (n-1)*spacing + ascent + descent，并在 frameW 内水平居中，顶部位于 anchorY。
func BlockBounds(widths []float64, ascent, descent, spacing, anchorY, frameW float64) Rect {
	n := len(widths)
	if n == 0 {
		return Rect{X: frameW / 2, Y: anchorY}
	}
	widest := 0.0
	for _, w := range widths {
		if w > widest {
			widest = w
		}
	}
	height := float64(n-1)*spacing + ascent + descent
	return Rect{X: (frameW - widest) / 2, Y: anchorY, Width: widest, Height: height}
}

// Baselines 返回每一行的基线 y 坐标。
func Baselines(n int, ascent, spacing, anchorY float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = anchorY + ascent + float64(i)*spacing
	}
	return out
}

// LineX 返回宽度为 width 的行在画面中水平居中时的起点。
func LineX(width, frameW float64) float64 {
	return (frameW - width) / 2
}
