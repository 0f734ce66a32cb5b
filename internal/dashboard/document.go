package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"covidpulse/internal/chart"
	"covidpulse/internal/dataset"
	"covidpulse/internal/infrastructure"
)

// DefaultInterval is the playback step period
const DefaultInterval = 800 * time.Millisecond

// Frame sources reported to metrics
const (
	SourceSlider = "slider"
	SourceTimer  = "timer"
	SourceStep   = "step"
)

var (
	// ErrClosed is returned by mutations after Close
	ErrClosed = errors.New("document closed")

	// ErrOutOfRange is returned for slider values outside [Start, End]
	ErrOutOfRange = errors.New("slider value out of range")
)

// RangeError carries the rejected slider value and the accepted bounds
type RangeError struct {
	Value, Start, End int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("slider value %d not in [%d, %d]", e.Value, e.Start, e.End)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// Listener receives every patch in revision order. Listeners run on the
// mutating goroutine and must not mutate the document themselves.
type Listener func(ctx context.Context, p Patch)

// Options configures a Document
type Options struct {
	Interval  time.Duration
	Scheduler Scheduler
	// Palette defaults to the Inferno palette shuffled with DefaultPaletteSeed
	Palette []string
	Logger  *slog.Logger
	Metrics *infrastructure.BusinessMetrics
}

// Document is the server-side state of one dashboard
type Document struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	ds       *dataset.Dataset
	spec     chart.PlotSpec
	mapper   *chart.ColorMapper
	layout   Layout
	interval time.Duration

	slider   Slider
	button   Button
	label    Label
	date     dataset.DateKey
	source   dataset.ColumnData
	revision uint64

	scheduler   Scheduler
	callbackID  CallbackID
	hasCallback bool
	generation  uint64
	closed      bool

	listeners  map[int]Listener
	nextListen int

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	tracer  trace.Tracer
}

// NewDocument builds the document showing the first date of ds
func NewDocument(ds *dataset.Dataset, spec chart.PlotSpec, opts Options) (*Document, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, dataset.ErrEmptyDataset
	}

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewTickerScheduler()
	}
	if opts.Palette == nil {
		opts.Palette = chart.ShuffledPalette(chart.DefaultPaletteSeed)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopBusinessMetrics()
	}

	date, source, err := ds.At(0)
	if err != nil {
		return nil, err
	}

	return &Document{
		ds:       ds,
		spec:     spec,
		mapper:   chart.NewColorMapper(opts.Palette, ds.Countries),
		layout:   DefaultLayout(),
		interval: opts.Interval,
		slider: Slider{
			Start: 0,
			End:   ds.Len() - 1,
			Value: 0,
			Step:  1,
		},
		button: Button{Label: PlayLabel, Width: ButtonWidth},
		label: Label{
			X:        spec.Label.X,
			Y:        spec.Label.Y,
			Text:     date.String(),
			FontSize: spec.Label.FontSize,
			Color:    spec.Label.Color,
		},
		date:      date,
		source:    source,
		scheduler: opts.Scheduler,
		listeners: make(map[int]Listener),
		logger:    infrastructure.WithComponent(opts.Logger, "document"),
		metrics:   opts.Metrics,
		tracer:    otel.Tracer("covidpulse/dashboard"),
	}, nil
}

// SetSliderValue shows the snapshot at index v. Setting the current value
// again changes nothing and returns an empty patch.
func (d *Document) SetSliderValue(ctx context.Context, v int) (Patch, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Patch{}, ErrClosed
	}
	p, err := d.setSliderLocked(v)
	if err == nil && !p.Empty() {
		infrastructure.RecordFrame(ctx, d.metrics, SourceSlider, v)
	}
	d.commit(ctx, p)
	return p, err
}

// Step advances the slider by one, pinned at the last date
func (d *Document) Step(ctx context.Context) (Patch, error) {
	return d.step(ctx, SourceStep)
}

func (d *Document) step(ctx context.Context, source string) (Patch, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Patch{}, ErrClosed
	}
	p, err := d.stepLocked(ctx, source)
	d.commit(ctx, p)
	return p, err
}

// stepLocked advances the slider by one; d.mu must be held
func (d *Document) stepLocked(ctx context.Context, source string) (Patch, error) {
	next := d.slider.Value + 1
	if next > d.slider.End {
		next = d.slider.End
	}
	p, err := d.setSliderLocked(next)
	if err == nil && !p.Empty() {
		infrastructure.RecordFrame(ctx, d.metrics, source, next)
	}
	return p, err
}

// tick is the periodic callback; ticks from an earlier play generation are ignored
func (d *Document) tick(gen uint64) {
	ctx, span := d.tracer.Start(infrastructure.EnsureTraceID(context.Background()), "dashboard.tick")
	defer span.End()
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"play.generation": int64(gen),
		"trace_id":        infrastructure.GetTraceID(ctx),
	})

	d.mu.Lock()
	if !d.hasCallback || d.generation != gen || d.closed {
		d.mu.Unlock()
		return
	}
	p, err := d.stepLocked(ctx, SourceTimer)
	d.commit(ctx, p)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(d.logger, err).WarnContext(ctx, "playback step failed")
	}
}

// TogglePlayback flips between Play and Pause, registering or removing the
// periodic step callback
func (d *Document) TogglePlayback(ctx context.Context) (Patch, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Patch{}, ErrClosed
	}

	var playing bool
	if d.button.Label == PlayLabel {
		d.button.Label = PauseLabel
		if d.hasCallback {
			d.scheduler.RemovePeriodicCallback(d.callbackID)
		}
		d.generation++
		gen := d.generation
		d.callbackID = d.scheduler.AddPeriodicCallback(func() { d.tick(gen) }, d.interval)
		d.hasCallback = true
		playing = true
	} else {
		d.button.Label = PlayLabel
		if d.hasCallback {
			d.scheduler.RemovePeriodicCallback(d.callbackID)
		}
		d.hasCallback = false
	}

	d.revision++
	label := d.button.Label
	p := Patch{Revision: d.revision, ButtonLabel: &label, Playing: &playing}

	d.logger.InfoContext(ctx, "playback toggled",
		slog.Bool("playing", playing),
		slog.Int("slider_value", d.slider.Value),
		slog.Duration("interval", d.interval),
	)
	infrastructure.RecordPlayback(ctx, d.metrics, playing)

	d.commit(ctx, p)
	return p, nil
}

// setSliderLocked applies the slider change; d.mu must be held
func (d *Document) setSliderLocked(v int) (Patch, error) {
	if v < d.slider.Start || v > d.slider.End {
		return Patch{}, &RangeError{Value: v, Start: d.slider.Start, End: d.slider.End}
	}
	if v == d.slider.Value {
		return Patch{Revision: d.revision}, nil
	}

	date, source, err := d.ds.At(v)
	if err != nil {
		return Patch{}, err
	}

	d.slider.Value = v
	d.date = date
	d.label.Text = date.String()
	d.source = source
	d.revision++

	value := v
	text := d.label.Text
	return Patch{
		Revision:    d.revision,
		SliderValue: &value,
		Date:        &date,
		LabelText:   &text,
		Source:      &source,
	}, nil
}

// commit releases d.mu and hands p to the listeners. notifyMu is taken
// before d.mu is released so listeners see patches in revision order.
func (d *Document) commit(ctx context.Context, p Patch) {
	if p.Empty() {
		d.mu.Unlock()
		return
	}

	listeners := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		listeners = append(listeners, l)
	}

	d.notifyMu.Lock()
	d.mu.Unlock()
	defer d.notifyMu.Unlock()

	for _, l := range listeners {
		l(ctx, p)
	}
}

// Subscribe registers fn for every future patch and returns its unsubscribe func
func (d *Document) Subscribe(fn Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextListen
	d.nextListen++
	d.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, id)
			d.mu.Unlock()
		})
	}
}

// State returns a copy of the whole document
func (d *Document) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return State{
		Title:    d.spec.Title,
		Revision: d.revision,
		Plot:     d.spec,
		Factors:  d.mapper.Factors(),
		Palette:  d.mapper.Palette(),
		Slider:   d.slider,
		Button:   d.button,
		Label:    d.label,
		Date:     d.date,
		Source:   d.source,
		Playing:  d.button.Label == PauseLabel,
		Layout:   d.layout,
	}
}

// Playing reports whether the periodic step callback is registered
func (d *Document) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasCallback
}

// Closed reports whether Close was called
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Current returns the shown date and its rows
func (d *Document) Current() (dataset.DateKey, dataset.ColumnData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.date, d.source
}

// Dataset returns the dataset the document was built from
func (d *Document) Dataset() *dataset.Dataset {
	return d.ds
}

// Mapper returns the country colour mapper
func (d *Document) Mapper() *chart.ColorMapper {
	return d.mapper
}

// Spec returns the plot description
func (d *Document) Spec() chart.PlotSpec {
	return d.spec
}

// Close stops playback and drops all listeners. Further mutations fail with ErrClosed.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if d.hasCallback {
		d.scheduler.RemovePeriodicCallback(d.callbackID)
		d.hasCallback = false
	}
	d.closed = true
	d.listeners = make(map[int]Listener)
	d.logger.Info("document closed", slog.Uint64("revision", d.revision))
}
