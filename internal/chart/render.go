package chart

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"covidpulse/internal/dataset"
)

// Format is an output image format
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ErrUnknownFormat is returned for formats other than svg and png
var ErrUnknownFormat = errors.New("unknown image format")

// ParseFormat accepts "svg" and "png" in any case
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Renderer draws single frames of the plot
type Renderer struct {
	Spec   PlotSpec
	Mapper *ColorMapper
	Width  int
	Height int
	// Legend adds a colour swatch per country
	Legend bool
}

// NewRenderer returns a renderer with a legend
func NewRenderer(spec PlotSpec, mapper *ColorMapper, width, height int) *Renderer {
	return &Renderer{Spec: spec, Mapper: mapper, Width: width, Height: height, Legend: true}
}

// Render writes one frame: one bubble per row of snapshot and the date label
func (r *Renderer) Render(w io.Writer, format Format, snapshot dataset.ColumnData, label string) error {
	var provider chart.RendererProvider
	switch format {
	case FormatSVG:
		provider = chart.SVG
	case FormatPNG:
		provider = chart.PNG
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	ch := r.build(snapshot, label)
	if r.Legend {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("render %s frame %s: %w", format, label, err)
	}
	return nil
}

func (r *Renderer) build(snapshot dataset.ColumnData, label string) chart.Chart {
	spec := r.Spec
	series := make([]chart.Series, 0, snapshot.Len()+1)
	for i := 0; i < snapshot.Len(); i++ {
		country := snapshot.Country[i]
		fill := r.Mapper.DrawingColor(country, spec.Glyph.FillAlpha)
		// A single point never draws a line; the stroke colour only feeds the legend swatch
		series = append(series, chart.ContinuousSeries{
			Name:    country,
			XValues: []float64{float64(snapshot.Confirmed[i])},
			YValues: []float64{snapshot.RecoveredRatio[i]},
			Style: chart.Style{
				StrokeWidth: spec.Glyph.LineWidth,
				StrokeColor: fill,
				DotWidth:    snapshot.Radius[i],
				DotColor:    fill,
			},
		})
	}

	series = append(series, chart.AnnotationSeries{
		Name: "date",
		Style: chart.Style{
			FontSize:    labelPoints(spec.Label.FontSize),
			FontColor:   toDrawingColor(spec.Label.Color, 1),
			FillColor:   drawing.ColorTransparent,
			StrokeColor: drawing.ColorTransparent,
		},
		Annotations: []chart.Value2{
			{XValue: spec.Label.X, YValue: spec.Label.Y, Label: label},
		},
	})

	ch := chart.Chart{
		Title:      spec.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           spec.XAxis.Label,
			Range:          &chart.ContinuousRange{Min: spec.XAxis.Range.Start, Max: spec.XAxis.Range.End},
			Ticks:          IntervalTicks(spec.XAxis.Range.Start, spec.XAxis.Range.End, spec.XAxis.TickInterval, FormatPlain),
			ValueFormatter: valueFormatter(FormatPlain),
		},
		YAxis: chart.YAxis{
			Name:           spec.YAxis.Label,
			Range:          &chart.ContinuousRange{Min: spec.YAxis.Range.Start, Max: spec.YAxis.Range.End},
			Ticks:          IntervalTicks(spec.YAxis.Range.Start, spec.YAxis.Range.End, spec.YAxis.TickInterval, FormatFixed2),
			ValueFormatter: valueFormatter(FormatFixed2),
		},
		Series: series,
	}
	return ch
}

// labelPoints turns a CSS size such as "70pt" into go-chart points
func labelPoints(size string) float64 {
	size = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(size, "pt"), "px"))
	v, err := strconv.ParseFloat(size, 64)
	if err != nil || v <= 0 {
		return chart.DefaultTitleFontSize
	}
	return v
}
