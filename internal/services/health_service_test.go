package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"covidpulse/internal/infrastructure"
	"covidpulse/internal/shared/testutil"
	"covidpulse/pkg/contracts"
)

func TestHealthCheck(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService(nil, nil, nil, "data.csv", logger)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, contracts.Version, status.Version)
	assert.False(t, status.Timestamp.IsZero())
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		hubRunning bool
		docReady   bool
		want       string
	}{
		{name: "all ready", hubRunning: true, docReady: true, want: "ready"},
		{name: "hub stopped", hubRunning: false, docReady: true, want: "not_ready"},
		{name: "document closed", hubRunning: true, docReady: false, want: "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &MockHubStatus{}
			hub.On("Running").Return(tt.hubRunning)
			doc := &MockDocumentStatus{}
			doc.On("Ready").Return(tt.docReady)

			logger, _ := testutil.NewTestLogger(t)
			hs := NewHealthService(hub, doc, nil, "data.csv", logger)

			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Contains(t, status.Services, "dashboard")
			assert.Contains(t, status.Services, "websocket")
		})
	}
}

func TestReadinessWithoutDependencies(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	hs := NewHealthService(nil, nil, nil, "", logger)

	status := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", status.Status)
	assert.True(t, logs.ContainsMessage("ReadinessCheck: not ready"))
}

func TestLivenessCheck(t *testing.T) {
	stats := &MockStatsProvider{}
	stats.On("GetCurrentStats", mock.Anything).Return(&infrastructure.SystemStats{MemoryUsage: 4096, GCCount: 3})

	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService(nil, nil, stats, "", logger)

	status := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", status.Status)
	assert.Equal(t, int64(4096), status.Runtime["memory_usage_bytes"])
	assert.Equal(t, uint32(3), status.Runtime["gc_count"])
	assert.Contains(t, status.Runtime, "goroutines")
	stats.AssertExpectations(t)
}

func TestVersion(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := NewHealthService(nil, nil, nil, "", logger)

	v := hs.Version()
	assert.Equal(t, contracts.Version, v["version"])
	assert.Equal(t, contracts.APIVersion, v["api_version"])
	assert.Contains(t, v, "uptime")
	assert.Contains(t, v["build"], contracts.GetVersionString())
	assert.Contains(t, v["build"], "commit: "+contracts.GitCommit)
}
