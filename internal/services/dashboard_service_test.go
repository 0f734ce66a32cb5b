package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"covidpulse/internal/chart"
	"covidpulse/internal/dashboard"
	"covidpulse/internal/dataset"
	"covidpulse/internal/websocket"
	"covidpulse/pkg/contracts/events"
)

// quietBroadcaster accepts every broadcast
func quietBroadcaster() *MockBroadcaster {
	b := &MockBroadcaster{}
	b.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return b
}

func TestDashboardServicePublishesPatches(t *testing.T) {
	b := &MockBroadcaster{}
	b.On("Broadcast", mock.Anything, events.MessageTypeDocumentPatch, mock.MatchedBy(func(p dashboard.Patch) bool {
		return p.Revision == 1 && p.SliderValue != nil && *p.SliderValue == 2 &&
			p.LabelText != nil && *p.LabelText == "2020-01-24"
	})).Return(nil).Once()

	svc := newTestDashboard(t, b, time.Hour)

	p, err := svc.SetSlider(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Revision)
	b.AssertExpectations(t)
}

func TestDashboardServiceBroadcastFailureIsNotFatal(t *testing.T) {
	b := &MockBroadcaster{}
	b.On("Broadcast", mock.Anything, events.MessageTypeDocumentPatch, mock.Anything).Return(websocket.ErrHubStopped)

	svc := newTestDashboard(t, b, time.Hour)

	_, err := svc.SetSlider(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, svc.State(context.Background()).Slider.Value)
}

func TestDashboardServiceNilBroadcaster(t *testing.T) {
	svc := newTestDashboard(t, nil, time.Hour)
	_, err := svc.Step(context.Background())
	assert.NoError(t, err)
}

func TestDashboardServiceTimerPatchesAreBroadcast(t *testing.T) {
	b := &MockBroadcaster{}
	b.On("Broadcast", mock.Anything, events.MessageTypeDocumentPatch, mock.Anything).Return(nil)

	svc := newTestDashboard(t, b, 10*time.Millisecond)

	_, err := svc.TogglePlayback(context.Background())
	require.NoError(t, err)

	// Two timer steps reach the last date and the value stays pinned
	require.Eventually(t, func() bool {
		return svc.State(context.Background()).Slider.Value == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, svc.State(context.Background()).Playing)

	// Pausing waits for earlier listeners, so every timer patch is recorded
	_, err = svc.TogglePlayback(context.Background())
	require.NoError(t, err)

	var sliderPatches, buttonPatches int
	for _, call := range b.Calls {
		p := call.Arguments.Get(2).(dashboard.Patch)
		if p.SliderValue != nil {
			sliderPatches++
		}
		if p.ButtonLabel != nil {
			buttonPatches++
		}
	}
	assert.Equal(t, 2, sliderPatches)
	assert.Equal(t, 2, buttonPatches)
}

func TestDashboardServiceQueries(t *testing.T) {
	svc := newTestDashboard(t, quietBroadcaster(), time.Hour)
	ctx := context.Background()

	dates := svc.Dates(ctx)
	assert.Equal(t, []string{"2020-01-22", "2020-01-23", "2020-01-24"}, dates.Dates)
	assert.Equal(t, 3, dates.Count)

	countries := svc.Countries(ctx)
	require.Equal(t, 3, countries.Count)
	assert.Equal(t, "China", countries.Countries[0].Country)
	assert.Regexp(t, `^#[0-9a-f]{6}$`, countries.Countries[0].Color)
	assert.NotEqual(t, countries.Countries[0].Color, countries.Countries[1].Color)
}

func TestDashboardServiceSnapshot(t *testing.T) {
	svc := newTestDashboard(t, quietBroadcaster(), time.Hour)
	ctx := context.Background()

	tests := []struct {
		name      string
		date      string
		wantDate  string
		wantIndex int
		wantRows  int
		wantErr   error
	}{
		{name: "iso", date: "2020-01-23", wantDate: "2020-01-23", wantIndex: 1, wantRows: 2},
		{name: "compact", date: "20200124", wantDate: "2020-01-24", wantIndex: 2, wantRows: 3},
		{name: "current", date: CurrentFrame, wantDate: "2020-01-22", wantIndex: 0, wantRows: 1},
		{name: "malformed", date: "23/01/2020", wantErr: ErrInvalidDate},
		{name: "unknown date", date: "2021-01-01", wantErr: dataset.ErrDateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Snapshot(ctx, tt.date)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, resp.Date)
			assert.Equal(t, tt.wantIndex, resp.Index)
			assert.Equal(t, tt.wantRows, resp.Data.(dataset.ColumnData).Len())
		})
	}
}

func TestDashboardServiceSliderOutOfRange(t *testing.T) {
	svc := newTestDashboard(t, quietBroadcaster(), time.Hour)

	_, err := svc.SetSlider(context.Background(), 3)
	var rangeErr *dashboard.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 2, rangeErr.End)
}

func TestDashboardServiceHandleCommand(t *testing.T) {
	tests := []struct {
		name     string
		cmd      events.Command
		wantCode string
		check    func(t *testing.T, svc *DashboardService)
	}{
		{
			name: "slider change",
			cmd:  events.Command{Type: events.MessageTypeSliderChange, Data: json.RawMessage(`{"value":1}`)},
			check: func(t *testing.T, svc *DashboardService) {
				state := svc.State(context.Background())
				assert.Equal(t, 1, state.Slider.Value)
				assert.Equal(t, "2020-01-23", state.Label.Text)
			},
		},
		{
			name: "button click",
			cmd:  events.Command{Type: events.MessageTypeButtonClick},
			check: func(t *testing.T, svc *DashboardService) {
				state := svc.State(context.Background())
				assert.True(t, state.Playing)
				assert.Equal(t, dashboard.PauseLabel, state.Button.Label)
			},
		},
		{
			name:     "slider without data",
			cmd:      events.Command{Type: events.MessageTypeSliderChange},
			wantCode: events.ErrCodeInvalidCommand,
		},
		{
			name:     "slider with bad data",
			cmd:      events.Command{Type: events.MessageTypeSliderChange, Data: json.RawMessage(`{"value":"two"}`)},
			wantCode: events.ErrCodeInvalidCommand,
		},
		{
			name:     "slider without value",
			cmd:      events.Command{Type: events.MessageTypeSliderChange, Data: json.RawMessage(`{}`)},
			wantCode: events.ErrCodeInvalidCommand,
		},
		{
			name:     "slider out of range",
			cmd:      events.Command{Type: events.MessageTypeSliderChange, Data: json.RawMessage(`{"value":-1}`)},
			wantCode: events.ErrCodeSliderOutOfRange,
		},
		{
			name:     "unsupported",
			cmd:      events.Command{Type: events.MessageTypeDocumentState},
			wantCode: events.ErrCodeUnsupportedCommand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestDashboard(t, quietBroadcaster(), time.Hour)

			err := svc.HandleCommand(context.Background(), tt.cmd)
			if tt.wantCode == "" {
				require.NoError(t, err)
				tt.check(t, svc)
				return
			}

			var cmdErr *websocket.CommandError
			require.ErrorAs(t, err, &cmdErr)
			assert.Equal(t, tt.wantCode, cmdErr.Code)
		})
	}
}

func TestDashboardServiceRangeErrorDetails(t *testing.T) {
	svc := newTestDashboard(t, quietBroadcaster(), time.Hour)

	err := svc.HandleCommand(context.Background(), events.Command{
		Type: events.MessageTypeSliderChange,
		Data: json.RawMessage(`{"value":9}`),
	})

	var cmdErr *websocket.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, map[string]int{"value": 9, "start": 0, "end": 2}, cmdErr.Details)
	assert.ErrorIs(t, err, dashboard.ErrOutOfRange)
}

func TestDashboardServiceClose(t *testing.T) {
	svc := newTestDashboard(t, quietBroadcaster(), time.Hour)
	require.True(t, svc.Ready())

	svc.Close()
	svc.Close()

	assert.False(t, svc.Ready())

	err := svc.HandleCommand(context.Background(), events.Command{Type: events.MessageTypeButtonClick})
	var cmdErr *websocket.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, events.ErrCodeDocumentClosed, cmdErr.Code)
	assert.True(t, errors.Is(err, dashboard.ErrClosed))
}

func TestDashboardServiceInitialState(t *testing.T) {
	svc := newTestDashboard(t, quietBroadcaster(), time.Hour)

	state, err := svc.InitialState(context.Background())
	require.NoError(t, err)
	s, ok := state.(dashboard.State)
	require.True(t, ok)
	assert.Equal(t, "COVID-19 Development", s.Title)
	assert.Equal(t, []string{"China", "Italy", "US"}, s.Factors)
}

func TestDashboardServiceRenderFrame(t *testing.T) {
	svc := newTestDashboard(t, quietBroadcaster(), time.Hour)
	ctx := context.Background()

	svg, err := svc.RenderFrame(ctx, chart.FormatSVG, CurrentFrame)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(svg, []byte("<svg")))
	assert.Contains(t, string(svg), "2020-01-22")

	png, err := svc.RenderFrame(ctx, chart.FormatPNG, "2020-01-24")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = svc.RenderFrame(ctx, chart.Format("gif"), CurrentFrame)
	assert.ErrorIs(t, err, chart.ErrUnknownFormat)

	_, err = svc.RenderFrame(ctx, chart.FormatSVG, "yesterday")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDashboardServiceRenderFrameSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	svc := newTestDashboard(t, quietBroadcaster(), time.Hour)
	ctx := context.Background()

	svg, err := svc.RenderFrame(ctx, chart.FormatSVG, CurrentFrame)
	require.NoError(t, err)
	_, err = svc.RenderFrame(ctx, chart.FormatSVG, "yesterday")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "dashboard.render_frame", ok.Name())
	assert.Contains(t, ok.Attributes(), attribute.String("chart.resolved_date", "2020-01-22"))
	assert.Contains(t, ok.Attributes(), attribute.Int("chart.bytes", len(svg)))

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	require.Len(t, failed.Events(), 1)
	assert.Equal(t, "exception", failed.Events()[0].Name)
}
