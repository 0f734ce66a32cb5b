package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"covidpulse/internal/infrastructure"
)

// MetricsHandler serves the JSON view of the WebSocket hub counters.
// Prometheus metrics live on /metrics.
type MetricsHandler struct {
	hub   HubMetricsProvider
	stats StatsSource
}

// StatsSource returns runtime statistics
type StatsSource interface {
	GetCurrentStats(ctx context.Context) *infrastructure.SystemStats
}

// NewMetricsHandler creates a new metrics handler; stats may be nil
func NewMetricsHandler(hub HubMetricsProvider, stats StatsSource) *MetricsHandler {
	return &MetricsHandler{hub: hub, stats: stats}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	r.Get("/websocket", h.GetWebSocketMetrics)
	return r
}

// GetMetrics handles GET /api/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"websocket": h.hub.GetHubMetrics(),
	}
	if h.stats != nil {
		if stats := h.stats.GetCurrentStats(r.Context()); stats != nil {
			response["system"] = stats
		}
	}
	render.JSON(w, r, response)
}

// GetWebSocketMetrics handles GET /api/metrics/websocket
func (h *MetricsHandler) GetWebSocketMetrics(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.hub.GetHubMetrics())
}
