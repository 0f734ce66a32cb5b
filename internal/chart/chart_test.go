package chart

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidpulse/internal/dataset"
)

func TestInferno256(t *testing.T) {
	palette := Inferno256()
	require.Len(t, palette, PaletteSize)

	for _, hex := range palette {
		assert.Regexp(t, `^#[0-9a-f]{6}$`, hex)
	}

	// Dark purple-black at the start, pale yellow at the end
	first := Inferno(0)
	last := Inferno(1)
	assert.Less(t, first.R+first.G+first.B, 0.1)
	assert.Greater(t, last.R, 0.9)
	assert.Greater(t, last.G, 0.9)
	assert.Less(t, last.B, last.R)

	// Out of range inputs clamp
	assert.Equal(t, Inferno(0).Hex(), Inferno(-3).Hex())
	assert.Equal(t, Inferno(1).Hex(), Inferno(7).Hex())
}

func TestShuffledPalette(t *testing.T) {
	a := ShuffledPalette(DefaultPaletteSeed)
	b := ShuffledPalette(DefaultPaletteSeed)
	c := ShuffledPalette(7)

	assert.Equal(t, a, b, "same seed gives the same order")
	assert.NotEqual(t, a, c, "different seeds give different orders")
	assert.NotEqual(t, Inferno256(), a)
	assert.ElementsMatch(t, Inferno256(), a, "shuffle keeps every colour")
}

func TestColorMapper(t *testing.T) {
	palette := []string{"#000004", "#fcffa4", "#bb3754"}
	m := NewColorMapper(palette, []string{"China", "Italy"})

	assert.Equal(t, "#000004", m.Color("China"))
	assert.Equal(t, "#fcffa4", m.Color("Italy"))
	assert.Equal(t, NaNColor, m.Color("Atlantis"))
	assert.Equal(t, []string{"#000004", "#fcffa4"}, m.Palette())
	assert.Equal(t, []string{"China", "Italy"}, m.Factors())

	c := m.DrawingColor("Italy", 0.8)
	assert.Equal(t, uint8(0xfc), c.R)
	assert.Equal(t, uint8(0xff), c.G)
	assert.Equal(t, uint8(0xa4), c.B)
	assert.Equal(t, uint8(204), c.A)
}

func TestColorMapperCyclesPalette(t *testing.T) {
	factors := make([]string, PaletteSize+2)
	for i := range factors {
		factors[i] = fmt.Sprintf("country-%d", i)
	}
	palette := ShuffledPalette(DefaultPaletteSeed)
	m := NewColorMapper(palette, factors)

	assert.Len(t, m.Palette(), PaletteSize)
	assert.Equal(t, m.Color("country-0"), m.Color(fmt.Sprintf("country-%d", PaletteSize)))
	assert.Equal(t, m.Color("country-1"), m.Color(fmt.Sprintf("country-%d", PaletteSize+1)))
}

func TestIntervalTicks(t *testing.T) {
	ticks := IntervalTicks(0, 650000, 40000, FormatPlain)
	require.Len(t, ticks, 18)
	assert.Equal(t, 0.0, ticks[0].Value)
	assert.Equal(t, "40000", ticks[1].Label)
	assert.Equal(t, 640000.0, ticks[16].Value)
	assert.Equal(t, 650000.0, ticks[17].Value)
	assert.Empty(t, ticks[17].Label)

	yTicks := IntervalTicks(0, 1, 0.05, FormatFixed2)
	require.Len(t, yTicks, 21)
	assert.Equal(t, 0.15, yTicks[3].Value)
	assert.Equal(t, "0.15", yTicks[3].Label)
	assert.Equal(t, 1.0, yTicks[20].Value)

	offset := IntervalTicks(5, 100, 40, nil)
	require.Len(t, offset, 4)
	assert.Equal(t, 5.0, offset[0].Value)
	assert.Empty(t, offset[0].Label)
	assert.Equal(t, "40", offset[1].Label)
	assert.Equal(t, 100.0, offset[3].Value)

	degenerate := IntervalTicks(0, 10, 0, nil)
	assert.Len(t, degenerate, 2)
}

func TestFormatPlainAvoidsScientific(t *testing.T) {
	assert.Equal(t, "640000", FormatPlain(640000))
	assert.Equal(t, "1200000", FormatPlain(1.2e6))
	assert.Equal(t, "0.05", FormatPlain(0.05))
}

func TestDefaultPlotSpec(t *testing.T) {
	spec := DefaultPlotSpec()

	assert.Equal(t, "COVID-19 Development", spec.Title)
	assert.Equal(t, 250, spec.Height)
	assert.Equal(t, Range{Start: 0, End: 650000}, spec.XAxis.Range)
	assert.Equal(t, Range{Start: 0, End: 1}, spec.YAxis.Range)
	assert.False(t, spec.XAxis.UseScientific)
	assert.Equal(t, "follow_mouse", spec.Hover.PointPolicy)
	require.Len(t, spec.Hover.Tooltips, 4)
	assert.Equal(t, "Deaths", spec.Hover.Tooltips[3].Field)
	assert.Equal(t, "#7c7e71", spec.Glyph.LineColor)
	assert.Equal(t, 70.0, labelPoints(spec.Label.FontSize))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())

	f, err = ParseFormat("png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.ContentType())

	_, err = ParseFormat("gif")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func sampleFrame() dataset.ColumnData {
	return dataset.ColumnData{
		Country:        []string{"China", "Italy"},
		Confirmed:      []int64{920, 300},
		Recovered:      []int64{36, 10},
		Deaths:         []int64{26, 5},
		Radius:         []float64{dataset.Radius(26), dataset.Radius(5)},
		RecoveredRatio: []float64{36.0 / 920.0, 10.0 / 300.0},
	}
}

func TestRendererSVG(t *testing.T) {
	mapper := NewColorMapper(ShuffledPalette(DefaultPaletteSeed), []string{"China", "Italy"})
	r := NewRenderer(DefaultPlotSpec(), mapper, 1200, 500)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, FormatSVG, sampleFrame(), "2020-01-24"))

	svg := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(svg), "<svg"))
	assert.Contains(t, svg, "2020-01-24")
	assert.Contains(t, svg, "COVID-19 Development")
	assert.Contains(t, svg, "China")
	assert.Contains(t, svg, "Italy")
}

func TestRendererPNG(t *testing.T) {
	mapper := NewColorMapper(Inferno256(), []string{"China", "Italy"})
	r := NewRenderer(DefaultPlotSpec(), mapper, 800, 400)
	r.Legend = false

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, FormatPNG, sampleFrame(), "2020-01-24"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestRendererEmptyFrameAndBadFormat(t *testing.T) {
	r := NewRenderer(DefaultPlotSpec(), NewColorMapper(Inferno256(), nil), 600, 300)

	var buf bytes.Buffer
	assert.NoError(t, r.Render(&buf, FormatSVG, dataset.ColumnData{}, "2020-01-22"))
	assert.ErrorIs(t, r.Render(&buf, Format("gif"), sampleFrame(), "x"), ErrUnknownFormat)
}
