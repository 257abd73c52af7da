package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe lengths used by scene templates.

// Unit represents the original unit of a length value as written in a template.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers
	UnitPX                  // pixels
	UnitPT                  // points; the raster backend renders at 72 DPI so 1pt == 1px
	UnitPercent             // percent of a reference dimension (frame width or height)
	UnitFactor              // "x" suffix, multiplier such as 1.25x line spacing
	UnitSecond              // "s" suffix, durations
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitPT:
		return "pt"
	case UnitPercent:
		return "%"
	case UnitFactor:
		return "x"
	case UnitSecond:
		return "s"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// Px resolves the length to pixels. Percentages are taken of ref.
func (l Length) Px(ref float64) float64 {
	switch l.Unit {
	case UnitPercent:
		return ref * l.Value / 100
	default:
		return l.Value
	}
}

// ParseLength parses a template length such as "450", "80px", "40pt", "50%", "1.25x" or "2s".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"pt", UnitPT}, {"%", UnitPercent}, {"x", UnitFactor}, {"s", UnitSecond}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

var namedColors = map[string]Color{
	"white":  {R: 255, G: 255, B: 255},
	"black":  {R: 0, G: 0, B: 0},
	"yellow": {R: 255, G: 255, B: 0},
	"gold":   {R: 255, G: 215, B: 0},
	"red":    {R: 255, G: 0, B: 0},
	"green":  {R: 0, G: 128, B: 0},
	"blue":   {R: 0, G: 0, B: 255},
	"gray":   {R: 128, G: 128, B: 128},
}

// ParseColor accepts #RGB, #RRGGBB, #RRGGBBAA or a small set of color names.
func ParseColor(value string) (Color, error) {
	v := strings.TrimSpace(value)
	if c, ok := namedColors[strings.ToLower(v)]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(v, "#")
	switch len(hex) {
	case 3:
		expanded := ""
		for _, ch := range hex {
			expanded += strings.Repeat(string(ch), 2)
		}
		return parseHexColor(expanded, value)
	case 6, 8:
		return parseHexColor(hex, value)
	default:
		return Color{}, fmt.Errorf("无法解析颜色 %q", value)
	}
}

func parseHexColor(hex, raw string) (Color, error) {
	parts := make([]int, 0, 4)
	for i := 0; i+2 <= len(hex); i += 2 {
		n, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("无法解析颜色 %q: %w", raw, err)
		}
		parts = append(parts, int(n))
	}
	c := Color{R: parts[0], G: parts[1], B: parts[2]}
	if len(parts) == 4 {
		c.A = parts[3]
		if c.A == 0 {
			// A==0 在 Color 中表示不透明，完全透明用 1 近似
			c.A = 1
		}
	}
	return c, nil
}

// Hex formats the color as #RRGGBB (alpha is dropped).
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", clampByte(c.R), clampByte(c.G), clampByte(c.B))
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
