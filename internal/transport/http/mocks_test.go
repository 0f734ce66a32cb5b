package http

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"

	"covidpulse/internal/chart"
	"covidpulse/internal/dashboard"
	apierrors "covidpulse/internal/errors"
	"covidpulse/internal/infrastructure"
	"covidpulse/internal/middleware"
	"covidpulse/internal/services"
	"covidpulse/internal/shared/testutil"
	apiv1 "covidpulse/pkg/contracts/api/v1"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) State(ctx context.Context) dashboard.State {
	return m.Called().Get(0).(dashboard.State)
}

func (m *MockDashboardService) Dates(ctx context.Context) apiv1.DatesResponse {
	return m.Called().Get(0).(apiv1.DatesResponse)
}

func (m *MockDashboardService) Countries(ctx context.Context) apiv1.CountriesResponse {
	return m.Called().Get(0).(apiv1.CountriesResponse)
}

func (m *MockDashboardService) Snapshot(ctx context.Context, date string) (*apiv1.SnapshotResponse, error) {
	args := m.Called(date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiv1.SnapshotResponse), args.Error(1)
}

func (m *MockDashboardService) SetSlider(ctx context.Context, value int) (dashboard.Patch, error) {
	args := m.Called(value)
	return args.Get(0).(dashboard.Patch), args.Error(1)
}

func (m *MockDashboardService) TogglePlayback(ctx context.Context) (dashboard.Patch, error) {
	args := m.Called()
	return args.Get(0).(dashboard.Patch), args.Error(1)
}

func (m *MockDashboardService) Step(ctx context.Context) (dashboard.Patch, error) {
	args := m.Called()
	return args.Get(0).(dashboard.Patch), args.Error(1)
}

func (m *MockDashboardService) RenderFrame(ctx context.Context, format chart.Format, date string) ([]byte, error) {
	args := m.Called(format, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

// MockHubMetrics is a mock implementation of HubMetricsProvider
type MockHubMetrics struct {
	mock.Mock
}

func (m *MockHubMetrics) GetHubMetrics() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

// MockStatsSource is a mock implementation of StatsSource
type MockStatsSource struct {
	mock.Mock
}

func (m *MockStatsSource) GetCurrentStats(ctx context.Context) *infrastructure.SystemStats {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*infrastructure.SystemStats)
}

// testDeps returns a logger, error handler and validator writing to a test buffer
func testDeps(t *testing.T) (*slog.Logger, *apierrors.ErrorHandler, *middleware.ValidationMiddleware) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return logger, errorHandler, middleware.NewValidationMiddleware(logger, errorHandler)
}
