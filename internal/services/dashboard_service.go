package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"covidpulse/internal/chart"
	"covidpulse/internal/dashboard"
	"covidpulse/internal/dataset"
	"covidpulse/internal/infrastructure"
	"covidpulse/internal/websocket"
	apiv1 "covidpulse/pkg/contracts/api/v1"
	"covidpulse/pkg/contracts/events"
)

// Broadcaster pushes a message to every connected browser
type Broadcaster interface {
	Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) error
}

// CurrentFrame is the date keyword addressing the shown snapshot
const CurrentFrame = "current"

// DashboardService owns the dashboard document. Every patch the document
// emits, whatever caused it, is broadcast as a document:patch message.
type DashboardService struct {
	doc         *dashboard.Document
	renderer    *chart.Renderer
	broadcaster Broadcaster
	metrics     *infrastructure.BusinessMetrics
	logger      *slog.Logger
	tracer      trace.Tracer
	validate    *validator.Validate

	unsubscribe func()
	closeOnce   sync.Once
}

// NewDashboardService wires doc to broadcaster. A nil broadcaster keeps the
// patches local, which is what the capture tool and tests use.
func NewDashboardService(doc *dashboard.Document, renderer *chart.Renderer, broadcaster Broadcaster, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	if renderer == nil {
		renderer = chart.NewRenderer(doc.Spec(), doc.Mapper(), 1200, 500)
	}

	s := &DashboardService{
		doc:         doc,
		renderer:    renderer,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger.With(slog.String("service", "dashboard")),
		tracer:      otel.Tracer("covidpulse/services"),
		validate:    validator.New(),
	}
	s.unsubscribe = doc.Subscribe(s.publish)

	ds := doc.Dataset()
	s.logger.Info("DashboardService initialized",
		slog.Int("dates", ds.Len()),
		slog.Int("countries", len(ds.Countries)),
		slog.String("first_date", ds.Dates[0].String()),
		slog.String("last_date", ds.Dates[ds.Len()-1].String()))

	return s
}

// publish is the document listener
func (s *DashboardService) publish(ctx context.Context, p dashboard.Patch) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(ctx, events.MessageTypeDocumentPatch, p); err != nil {
		s.logger.WarnContext(ctx, "Failed to broadcast patch",
			slog.Uint64("revision", p.Revision),
			slog.String("error", err.Error()))
	}
}

// State returns the whole document
func (s *DashboardService) State(ctx context.Context) dashboard.State {
	return s.doc.State()
}

// Ready reports whether the document accepts mutations
func (s *DashboardService) Ready() bool {
	return !s.doc.Closed()
}

// Dates lists every slider position as YYYY-MM-DD
func (s *DashboardService) Dates(ctx context.Context) apiv1.DatesResponse {
	ds := s.doc.Dataset()
	dates := make([]string, len(ds.Dates))
	for i, d := range ds.Dates {
		dates[i] = d.String()
	}
	return apiv1.DatesResponse{Dates: dates, Count: len(dates)}
}

// Countries lists the legend in factor order with each country's colour
func (s *DashboardService) Countries(ctx context.Context) apiv1.CountriesResponse {
	mapper := s.doc.Mapper()
	factors := mapper.Factors()
	out := make([]apiv1.CountryColor, len(factors))
	for i, f := range factors {
		out[i] = apiv1.CountryColor{Country: f, Color: mapper.Color(f)}
	}
	return apiv1.CountriesResponse{Countries: out, Count: len(out)}
}

// Snapshot returns the rows of one date. date is YYYY-MM-DD, YYYYMMDD or "current".
func (s *DashboardService) Snapshot(ctx context.Context, date string) (*apiv1.SnapshotResponse, error) {
	key, data, err := s.resolve(date)
	if err != nil {
		return nil, err
	}
	idx, _ := s.doc.Dataset().Index(key)
	return &apiv1.SnapshotResponse{Date: key.String(), Index: idx, Data: data}, nil
}

// resolve maps a date string to its snapshot
func (s *DashboardService) resolve(date string) (dataset.DateKey, dataset.ColumnData, error) {
	if date == "" || date == CurrentFrame {
		key, data := s.doc.Current()
		return key, data, nil
	}

	key, err := dataset.ParseDateKey(date)
	if err != nil {
		return 0, dataset.ColumnData{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	data, err := s.doc.Dataset().Snapshot(key)
	if err != nil {
		return 0, dataset.ColumnData{}, fmt.Errorf("%s: %w", key, err)
	}
	return key, data, nil
}

// SetSlider moves the slider
func (s *DashboardService) SetSlider(ctx context.Context, value int) (dashboard.Patch, error) {
	p, err := s.doc.SetSliderValue(ctx, value)
	if err != nil {
		s.logger.WarnContext(ctx, "Slider change rejected",
			slog.Int("value", value),
			slog.String("error", err.Error()))
		return p, err
	}
	s.logger.DebugContext(ctx, "Slider moved",
		slog.Int("value", value),
		slog.Uint64("revision", p.Revision))
	return p, nil
}

// TogglePlayback presses the Play/Pause button
func (s *DashboardService) TogglePlayback(ctx context.Context) (dashboard.Patch, error) {
	return s.doc.TogglePlayback(ctx)
}

// Step advances one date
func (s *DashboardService) Step(ctx context.Context) (dashboard.Patch, error) {
	return s.doc.Step(ctx)
}

// RenderFrame draws the snapshot of date ("current" for the shown one)
func (s *DashboardService) RenderFrame(ctx context.Context, format chart.Format, date string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.render_frame",
		trace.WithAttributes(
			attribute.String("chart.format", string(format)),
			attribute.String("chart.date", date),
		))
	defer span.End()

	key, data, err := s.resolve(date)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	start := time.Now()
	var buf bytes.Buffer
	err = s.renderer.Render(&buf, format, data, key.String())
	infrastructure.RecordChartRender(ctx, s.metrics, string(format), time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "Frame render failed",
			slog.String("date", key.String()),
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return nil, err
	}

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"chart.resolved_date": key.String(),
		"chart.bytes":         buf.Len(),
	})
	return buf.Bytes(), nil
}

// HandleCommand executes a browser command
func (s *DashboardService) HandleCommand(ctx context.Context, cmd events.Command) error {
	var err error
	switch cmd.Type {
	case events.MessageTypeSliderChange:
		var change events.SliderChange
		if len(cmd.Data) == 0 {
			return websocket.NewCommandError(events.ErrCodeInvalidCommand, "slider:change needs a value", ErrInvalidCommand)
		}
		if uerr := json.Unmarshal(cmd.Data, &change); uerr != nil {
			return websocket.NewCommandError(events.ErrCodeInvalidCommand, "slider:change data is not valid", uerr)
		}
		if verr := s.validate.Struct(change); verr != nil {
			return websocket.NewCommandError(events.ErrCodeInvalidCommand, "slider:change needs a value", verr)
		}
		_, err = s.SetSlider(ctx, *change.Value)
	case events.MessageTypeButtonClick:
		_, err = s.TogglePlayback(ctx)
	default:
		return websocket.NewCommandError(events.ErrCodeUnsupportedCommand, "Unsupported command type", ErrInvalidCommand)
	}
	return commandError(err)
}

// commandError gives document errors their wire codes
func commandError(err error) error {
	if err == nil {
		return nil
	}
	var rangeErr *dashboard.RangeError
	switch {
	case errors.As(err, &rangeErr):
		cerr := websocket.NewCommandError(events.ErrCodeSliderOutOfRange, rangeErr.Error(), err)
		cerr.Details = map[string]int{"value": rangeErr.Value, "start": rangeErr.Start, "end": rangeErr.End}
		return cerr
	case errors.Is(err, dashboard.ErrClosed):
		return websocket.NewCommandError(events.ErrCodeDocumentClosed, "The dashboard document has been closed", err)
	}
	return err
}

// InitialState is the document:state message a browser gets on connect
func (s *DashboardService) InitialState(ctx context.Context) (interface{}, error) {
	return s.doc.State(), nil
}

// Close detaches from the document and stops playback
func (s *DashboardService) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		s.doc.Close()
		s.logger.Info("DashboardService closed")
	})
}
