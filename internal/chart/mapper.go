package chart

import (
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// NaNColor is used for factors the mapper does not know
const NaNColor = "#808080"

// ColorMapper maps categorical factors (countries) to palette colours.
// Factor i gets palette[i], wrapping when there are more factors than colours.
type ColorMapper struct {
	palette []string
	factors []string
	index   map[string]int
}

// NewColorMapper trims palette to the number of factors
func NewColorMapper(palette, factors []string) *ColorMapper {
	m := &ColorMapper{
		factors: append([]string(nil), factors...),
		index:   make(map[string]int, len(factors)),
	}
	for i, f := range factors {
		if _, ok := m.index[f]; !ok {
			m.index[f] = i
		}
	}

	n := len(factors)
	if n > len(palette) {
		n = len(palette)
	}
	m.palette = append([]string(nil), palette[:n]...)
	return m
}

// Color returns the hex colour for factor
func (m *ColorMapper) Color(factor string) string {
	i, ok := m.index[factor]
	if !ok || len(m.palette) == 0 {
		return NaNColor
	}
	return m.palette[i%len(m.palette)]
}

// DrawingColor returns the colour for factor with the given alpha in [0, 1]
func (m *ColorMapper) DrawingColor(factor string, alpha float64) drawing.Color {
	return toDrawingColor(m.Color(factor), alpha)
}

// Palette returns the palette entries in use, aligned with Factors
func (m *ColorMapper) Palette() []string {
	return append([]string(nil), m.palette...)
}

// Factors returns the mapped factors in order
func (m *ColorMapper) Factors() []string {
	return append([]string(nil), m.factors...)
}

func toDrawingColor(hex string, alpha float64) drawing.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(NaNColor)
	}
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}
	r, g, b := c.RGB255()
	return drawing.Color{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}
}
