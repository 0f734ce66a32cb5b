package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidpulse/internal/shared/testutil"
)

var testDates = []string{"2020-01-22", "2020-01-23", "2020-01-24"}

// fakeDashboard serves the slice of the dashboard API the capture uses
type fakeDashboard struct {
	mu       sync.Mutex
	value    int
	playing  bool
	revision uint64
	toggles  int
	sets     []int
}

func (f *fakeDashboard) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard/dates", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"dates": testDates, "count": len(testDates)})
	})
	mux.HandleFunc("GET /api/dashboard/state", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"revision": f.revision,
			"playing":  f.playing,
			"date":     testDates[f.value],
		})
	})
	mux.HandleFunc("POST /api/dashboard/playback/toggle", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.toggles++
		f.playing = !f.playing
		f.revision++
		json.NewEncoder(w).Encode(map[string]interface{}{"revision": f.revision, "playing": f.playing})
	})
	mux.HandleFunc("PUT /api/dashboard/slider", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Value int `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if req.Value >= len(testDates) {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"title":  "Slider Out Of Range",
				"status": http.StatusUnprocessableEntity,
				"detail": "value is outside the slider range",
			})
			return
		}
		f.sets = append(f.sets, req.Value)
		if req.Value == f.value {
			json.NewEncoder(w).Encode(map[string]interface{}{"revision": f.revision})
			return
		}
		f.value = req.Value
		f.revision++
		json.NewEncoder(w).Encode(map[string]interface{}{"revision": f.revision, "date": testDates[f.value]})
	})
	return mux
}

type fakeShooter struct {
	shots []string
	err   error
}

func (s *fakeShooter) Shoot(ctx context.Context, date string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.shots = append(s.shots, date)
	return []byte("png:" + date), nil
}

func newTestClient(t *testing.T, dash *fakeDashboard) *dashboardClient {
	t.Helper()
	srv := httptest.NewServer(dash.handler())
	t.Cleanup(srv.Close)
	return newDashboardClient(srv.URL+"/", 5*time.Second)
}

func TestDashboardClient_Dates(t *testing.T) {
	client := newTestClient(t, &fakeDashboard{})

	dates, err := client.Dates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testDates, dates)
}

func TestDashboardClient_Pause(t *testing.T) {
	t.Run("playing", func(t *testing.T) {
		dash := &fakeDashboard{playing: true}
		require.NoError(t, newTestClient(t, dash).Pause(context.Background()))
		assert.Equal(t, 1, dash.toggles)
		assert.False(t, dash.playing)
	})

	t.Run("paused", func(t *testing.T) {
		dash := &fakeDashboard{}
		require.NoError(t, newTestClient(t, dash).Pause(context.Background()))
		assert.Zero(t, dash.toggles)
	})
}

func TestDashboardClient_SetSliderProblem(t *testing.T) {
	client := newTestClient(t, &fakeDashboard{})

	_, err := client.SetSlider(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "outside the slider range")
}

func TestCapturer_CaptureAll(t *testing.T) {
	dash := &fakeDashboard{}
	shots := &fakeShooter{}
	logger, _ := testutil.NewTestLogger(t)
	out := t.TempDir()

	c := &capturer{client: newTestClient(t, dash), shooter: shots, outDir: out, logger: logger}
	written, err := c.captureAll(context.Background(), testDates)
	require.NoError(t, err)

	assert.Equal(t, 3, written)
	assert.Equal(t, []int{0, 1, 2}, dash.sets)
	assert.Equal(t, testDates, shots.shots)

	for i, date := range testDates {
		content, err := os.ReadFile(filepath.Join(out, FrameFileName(i, date)))
		require.NoError(t, err)
		assert.Equal(t, "png:"+date, string(content))
	}
}

func TestCapturer_Errors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	t.Run("shooter fails", func(t *testing.T) {
		c := &capturer{
			client:  newTestClient(t, &fakeDashboard{}),
			shooter: &fakeShooter{err: errors.New("browser gone")},
			outDir:  t.TempDir(),
			logger:  logger,
		}
		written, err := c.captureAll(context.Background(), testDates)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser gone")
		assert.Zero(t, written)
	})

	t.Run("more dates than slider positions", func(t *testing.T) {
		c := &capturer{
			client:  newTestClient(t, &fakeDashboard{}),
			shooter: &fakeShooter{},
			outDir:  t.TempDir(),
			logger:  logger,
		}
		written, err := c.captureAll(context.Background(), append(testDates, "2020-01-25"))
		require.Error(t, err)
		assert.Equal(t, 3, written)
	})

	t.Run("date mismatch", func(t *testing.T) {
		c := &capturer{
			client:  newTestClient(t, &fakeDashboard{}),
			shooter: &fakeShooter{},
			outDir:  t.TempDir(),
			logger:  logger,
		}
		_, err := c.captureAll(context.Background(), []string{"2020-01-22", "2021-01-01"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 2021-01-01")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := &capturer{client: newTestClient(t, &fakeDashboard{}), shooter: &fakeShooter{}, outDir: t.TempDir(), logger: logger}
		_, err := c.captureAll(ctx, testDates)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFrameFileName(t *testing.T) {
	assert.Equal(t, "frame_0003_2020-01-25.png", FrameFileName(3, "2020-01-25"))
}

func TestFrameReadyJS(t *testing.T) {
	js := frameReadyJS("2020-01-25")
	assert.Contains(t, js, `getElementById('chart')`)
	assert.Contains(t, js, `getAttribute('data-date') === "2020-01-25"`)
}
