package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"covidpulse/internal/infrastructure"
	"covidpulse/pkg/contracts"
)

// HubStatus is the part of the WebSocket hub health checks need
type HubStatus interface {
	Running() bool
	ClientCount() int
}

// DocumentStatus is the part of the dashboard health checks need
type DocumentStatus interface {
	Ready() bool
}

// StatsProvider returns runtime statistics
type StatsProvider interface {
	GetCurrentStats(ctx context.Context) *infrastructure.SystemStats
}

// HealthService provides health check functionality
type HealthService struct {
	hub       HubStatus
	dashboard DocumentStatus
	stats     StatsProvider
	source    string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. Any dependency may be nil; the
// matching readiness check then reports not_ready. source names the loaded dataset.
func NewHealthService(hub HubStatus, dashboard DocumentStatus, stats StatsProvider, source string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", contracts.Version),
		slog.String("dataset_source", source))

	return &HealthService{
		hub:       hub,
		dashboard: dashboard,
		stats:     stats,
		source:    source,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports ready once the dataset is loaded and the hub runs
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]interface{}{
			"dashboard": hs.checkDashboardHealth(),
			"websocket": hs.checkWebSocketHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready",
			slog.Any("services", status.Services))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if hs.stats != nil {
		if stats := hs.stats.GetCurrentStats(ctx); stats != nil {
			rt["memory_usage_bytes"] = stats.MemoryUsage
			rt["gc_count"] = stats.GCCount
		}
	}

	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime:   rt,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"api_version":  info.APIVersion,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"build":        contracts.GetFullVersionString(),
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDashboardHealth() ServiceHealth {
	if hs.dashboard == nil || !hs.dashboard.Ready() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "dashboard document not available",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "dataset loaded from " + hs.source,
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil || !hs.hub.Running() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "websocket hub not running",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "WebSocket service is healthy",
		Uptime:  time.Since(hs.startTime).String(),
	}
}
