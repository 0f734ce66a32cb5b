// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP/WebSocket transports and the reactive document,
// so handlers never touch the document or the hub directly.
//
// # Available Services
//
//   - DashboardService: owns the dashboard document, broadcasts its patches
//     to every browser, executes WebSocket commands and renders frames
//   - HealthService: health, readiness, liveness and version reporting
//
// # Error Handling
//
// Services return the sentinel errors of this package and of the dashboard
// and dataset packages; handlers translate them into RFC 7807 problems:
//
//   - ErrInvalidDate for malformed dates
//   - dataset.ErrDateNotFound for dates without a snapshot
//   - dashboard.ErrOutOfRange (as *dashboard.RangeError) for bad slider values
//   - dashboard.ErrClosed once the service is shut down
//
// # Testing
//
// Services are tested with testify mocks for their collaborators:
//
//	hub := &MockBroadcaster{}
//	hub.On("Broadcast", mock.Anything, events.MessageTypeDocumentPatch, mock.Anything).Return(nil)
//	svc := NewDashboardService(doc, renderer, hub, nil, logger)
package services
