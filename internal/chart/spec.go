package chart

// Range is an inclusive axis range
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AxisSpec describes one axis with a single-interval ticker
type AxisSpec struct {
	Label         string  `json:"label"`
	Range         Range   `json:"range"`
	TickInterval  float64 `json:"tick_interval"`
	UseScientific bool    `json:"use_scientific"`
}

// LabelStyle positions the large date label inside the plot
type LabelStyle struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize string  `json:"font_size"`
	Color    string  `json:"color"`
}

// GlyphSpec binds the circle glyph to source columns
type GlyphSpec struct {
	X           string  `json:"x"`
	Y           string  `json:"y"`
	Size        string  `json:"size"`
	ColorField  string  `json:"color_field"`
	FillAlpha   float64 `json:"fill_alpha"`
	LineColor   string  `json:"line_color"`
	LineWidth   float64 `json:"line_width"`
	LineAlpha   float64 `json:"line_alpha"`
	LegendField string  `json:"legend_field"`
}

// Tooltip is one hover row: a caption and the column it shows
type Tooltip struct {
	Label string `json:"label"`
	Field string `json:"field"`
}

// HoverSpec configures the hover tool
type HoverSpec struct {
	Tooltips    []Tooltip `json:"tooltips"`
	ShowArrow   bool      `json:"show_arrow"`
	PointPolicy string    `json:"point_policy"`
}

// PlotSpec is the static description of the scatter plot
type PlotSpec struct {
	Title  string     `json:"title"`
	Height int        `json:"height"`
	XAxis  AxisSpec   `json:"x_axis"`
	YAxis  AxisSpec   `json:"y_axis"`
	Label  LabelStyle `json:"label"`
	Glyph  GlyphSpec  `json:"glyph"`
	Hover  HoverSpec  `json:"hover"`
}

// DefaultPlotSpec returns the COVID-19 development plot
func DefaultPlotSpec() PlotSpec {
	return PlotSpec{
		Title:  "COVID-19 Development",
		Height: 250,
		XAxis: AxisSpec{
			Label:        "Number of positively tested patients",
			Range:        Range{Start: 0, End: 650000},
			TickInterval: 40000,
		},
		YAxis: AxisSpec{
			Label:        "Percentage of recovered patients",
			Range:        Range{Start: 0, End: 1},
			TickInterval: 0.05,
		},
		Label: LabelStyle{
			X:        2000,
			Y:        0.85,
			FontSize: "70pt",
			Color:    "#eeeeee",
		},
		Glyph: GlyphSpec{
			X:           "Confirmed",
			Y:           "RecoveredRatio",
			Size:        "Radius",
			ColorField:  "Country",
			FillAlpha:   0.8,
			LineColor:   "#7c7e71",
			LineWidth:   0.5,
			LineAlpha:   0.5,
			LegendField: "Country",
		},
		Hover: HoverSpec{
			Tooltips: []Tooltip{
				{Label: "Country", Field: "Country"},
				{Label: "Number of of confirmed cases", Field: "Confirmed"},
				{Label: "Percentage of recovered cases", Field: "RecoveredRatio"},
				{Label: "Deaths", Field: "Deaths"},
			},
			ShowArrow:   false,
			PointPolicy: "follow_mouse",
		},
	}
}
