package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidpulse/internal/infrastructure"
	"covidpulse/internal/services"
	"covidpulse/internal/shared/testutil"
	"covidpulse/pkg/contracts"
)

func TestHealthHandler(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name           string
		setupMock      func(*MockHealthService)
		handlerFunc    func(*HealthHandler) http.HandlerFunc
		expectedStatus int
		checkResponse  func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "health check endpoint",
			setupMock: func(m *MockHealthService) {
				m.On("HealthCheck").Return(services.HealthStatus{Status: "ok", Timestamp: now, Version: contracts.Version})
			},
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.HealthCheck },
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ok", body["status"])
				assert.Contains(t, body, "timestamp")
			},
		},
		{
			name: "ready",
			setupMock: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{
					Status:   "ready",
					Services: map[string]interface{}{"dashboard": services.ServiceHealth{Status: "ready"}},
				})
			},
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ready", body["status"])
				assert.Contains(t, body, "services")
			},
		},
		{
			name: "not ready",
			setupMock: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "not_ready"})
			},
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			expectedStatus: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "not_ready", body["status"])
			},
		},
		{
			name: "liveness check endpoint",
			setupMock: func(m *MockHealthService) {
				m.On("LivenessCheck").Return(services.HealthStatus{
					Status:  "alive",
					Runtime: map[string]interface{}{"goroutines": 7},
				})
			},
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.LivenessCheck },
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "alive", body["status"])
				assert.Contains(t, body, "runtime")
			},
		},
		{
			name: "version endpoint",
			setupMock: func(m *MockHealthService) {
				m.On("Version").Return(map[string]interface{}{"version": contracts.Version, "api_version": contracts.APIVersion})
			},
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.Version },
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, contracts.Version, body["version"])
				assert.Equal(t, contracts.APIVersion, body["api_version"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockHealthService)
			tt.setupMock(svc)
			logger, _ := testutil.NewTestLogger(t)
			handler := NewHealthHandler(svc, logger)

			rec := httptest.NewRecorder()
			tt.handlerFunc(handler)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			tt.checkResponse(t, body)
			svc.AssertExpectations(t)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	hub := new(MockHubMetrics)
	hub.On("GetHubMetrics").Return(map[string]interface{}{"active_clients": 2, "running": true})
	stats := new(MockStatsSource)
	stats.On("GetCurrentStats").Return(&infrastructure.SystemStats{GoRoutines: 12})

	router := NewMetricsHandler(hub, stats).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{"active_clients": float64(2), "running": true}, body["websocket"])
	assert.Equal(t, float64(12), body["system"].(map[string]interface{})["goroutines"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/websocket", nil))
	assert.JSONEq(t, `{"active_clients":2,"running":true}`, rec.Body.String())
}

func TestMetricsHandlerWithoutStats(t *testing.T) {
	hub := new(MockHubMetrics)
	hub.On("GetHubMetrics").Return(map[string]interface{}{"running": false})

	rec := httptest.NewRecorder()
	NewMetricsHandler(hub, nil).GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"system"`)
}

func TestClientLogHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedLog    string
	}{
		{
			name:           "valid entry",
			body:           `{"level":"warn","message":"websocket reconnecting","source":"app.js"}`,
			expectedStatus: http.StatusOK,
			expectedLog:    "websocket reconnecting",
		},
		{
			name:           "default level",
			body:           `{"message":"revision gap, refetching state"}`,
			expectedStatus: http.StatusOK,
			expectedLog:    "revision gap, refetching state",
		},
		{
			name:           "unknown level",
			body:           `{"level":"fatal","message":"x"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing message",
			body:           `{"level":"info"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			_, errorHandler, validator := testDeps(t)
			handler := NewClientLogHandler(validator, logger, errorHandler)

			req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.Handle(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedLog != "" {
				assert.True(t, logs.ContainsMessage(tt.expectedLog))
				assert.JSONEq(t, `{"success":true}`, rec.Body.String())
			}
		})
	}
}

func TestServeMainApp(t *testing.T) {
	frontend := fstest.MapFS{
		"index.html": {Data: []byte(`<title>{{.Title}}</title><meta name="version" content="{{.Version}}">`)},
		"app.js":     {Data: []byte(`console.log("ok")`)},
	}
	logger, _ := testutil.NewTestLogger(t)

	rec := httptest.NewRecorder()
	ServeMainApp(frontend, logger)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<title>COVID-19 Development</title>")
	assert.Contains(t, rec.Body.String(), contracts.Version)

	rec = httptest.NewRecorder()
	ServeStatic(frontend).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `console.log("ok")`)
}

func TestServeMainAppMissingIndex(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	rec := httptest.NewRecorder()
	ServeMainApp(fstest.MapFS{}, logger)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
