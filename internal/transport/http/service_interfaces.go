package http

import (
	"context"

	"covidpulse/internal/chart"
	"covidpulse/internal/dashboard"
	"covidpulse/internal/services"
	apiv1 "covidpulse/pkg/contracts/api/v1"
)

// DashboardServiceInterface defines the dashboard operations the HTTP layer uses
type DashboardServiceInterface interface {
	State(ctx context.Context) dashboard.State
	Dates(ctx context.Context) apiv1.DatesResponse
	Countries(ctx context.Context) apiv1.CountriesResponse
	Snapshot(ctx context.Context, date string) (*apiv1.SnapshotResponse, error)
	SetSlider(ctx context.Context, value int) (dashboard.Patch, error)
	TogglePlayback(ctx context.Context) (dashboard.Patch, error)
	Step(ctx context.Context) (dashboard.Patch, error)
	RenderFrame(ctx context.Context, format chart.Format, date string) ([]byte, error)
}

// HealthServiceInterface defines the health operations
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

// HubMetricsProvider exposes WebSocket hub counters
type HubMetricsProvider interface {
	GetHubMetrics() map[string]interface{}
}
