package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"covidpulse/internal/chart"
	"covidpulse/internal/dashboard"
	"covidpulse/internal/dataset"
	"covidpulse/internal/infrastructure"
	"covidpulse/internal/shared/testutil"
	"covidpulse/pkg/contracts/events"
)

// MockBroadcaster is a mock for the WebSocket hub
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) error {
	args := m.Called(ctx, msgType, data)
	return args.Error(0)
}

// MockHubStatus is a mock for HubStatus
type MockHubStatus struct {
	mock.Mock
}

func (m *MockHubStatus) Running() bool {
	return m.Called().Bool(0)
}

func (m *MockHubStatus) ClientCount() int {
	return m.Called().Int(0)
}

// MockDocumentStatus is a mock for DocumentStatus
type MockDocumentStatus struct {
	mock.Mock
}

func (m *MockDocumentStatus) Ready() bool {
	return m.Called().Bool(0)
}

// MockStatsProvider is a mock for StatsProvider
type MockStatsProvider struct {
	mock.Mock
}

func (m *MockStatsProvider) GetCurrentStats(ctx context.Context) *infrastructure.SystemStats {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*infrastructure.SystemStats)
}

// newTestDashboard builds a service over the sample dataset. interval is the
// playback period of the real ticker scheduler.
func newTestDashboard(t *testing.T, broadcaster Broadcaster, interval time.Duration) *DashboardService {
	t.Helper()
	ds, err := dataset.Load(context.Background(), testutil.WriteSampleCSV(t), dataset.Options{
		MinConfirmed: dataset.DefaultMinConfirmed,
	})
	require.NoError(t, err)

	logger, _ := testutil.NewTestLogger(t)
	sched := dashboard.NewTickerScheduler()
	t.Cleanup(sched.Stop)

	doc, err := dashboard.NewDocument(ds, chart.DefaultPlotSpec(), dashboard.Options{
		Interval:  interval,
		Scheduler: sched,
		Logger:    logger,
	})
	require.NoError(t, err)

	renderer := chart.NewRenderer(doc.Spec(), doc.Mapper(), 640, 360)
	svc := NewDashboardService(doc, renderer, broadcaster, nil, logger)
	t.Cleanup(svc.Close)
	return svc
}
