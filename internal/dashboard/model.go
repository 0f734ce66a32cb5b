package dashboard

import (
	"covidpulse/internal/chart"
	"covidpulse/internal/dataset"
)

// Button labels double as the playback state
const (
	PlayLabel  = "► Play"
	PauseLabel = "❚❚ Pause"

	ButtonWidth = 60
)

// Slider selects the snapshot by index
type Slider struct {
	Start     int  `json:"start"`
	End       int  `json:"end"`
	Value     int  `json:"value"`
	Step      int  `json:"step"`
	ShowValue bool `json:"show_value"`
}

// Button toggles playback
type Button struct {
	Label string `json:"label"`
	Width int    `json:"width"`
}

// Label is the large date caption drawn inside the plot
type Label struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text"`
	FontSize string  `json:"font_size"`
	Color    string  `json:"color"`
}

// Layout arranges the widgets in rows
type Layout struct {
	Rows       [][]string `json:"rows"`
	SizingMode string     `json:"sizing_mode"`
}

// DefaultLayout puts the plot above the slider and button
func DefaultLayout() Layout {
	return Layout{
		Rows:       [][]string{{"plot"}, {"slider", "button"}},
		SizingMode: "scale_width",
	}
}

// State is a complete, serialisable copy of the document
type State struct {
	Title    string             `json:"title"`
	Revision uint64             `json:"revision"`
	Plot     chart.PlotSpec     `json:"plot"`
	Factors  []string           `json:"factors"`
	Palette  []string           `json:"palette"`
	Slider   Slider             `json:"slider"`
	Button   Button             `json:"button"`
	Label    Label              `json:"label"`
	Date     dataset.DateKey    `json:"date"`
	Source   dataset.ColumnData `json:"source"`
	Playing  bool               `json:"playing"`
	Layout   Layout             `json:"layout"`
}

// Patch is the change set of one mutation. Nil fields did not change.
type Patch struct {
	Revision    uint64              `json:"revision"`
	SliderValue *int                `json:"slider_value,omitempty"`
	Date        *dataset.DateKey    `json:"date,omitempty"`
	LabelText   *string             `json:"label_text,omitempty"`
	ButtonLabel *string             `json:"button_label,omitempty"`
	Playing     *bool               `json:"playing,omitempty"`
	Source      *dataset.ColumnData `json:"source,omitempty"`
}

// Empty reports whether the patch carries no change
func (p Patch) Empty() bool {
	return p.SliderValue == nil && p.LabelText == nil && p.ButtonLabel == nil &&
		p.Playing == nil && p.Source == nil
}
