// Package app wires the dashboard together and owns its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, config.yaml and COVIDPULSE_* variables
//  2. Initialize logging and OpenTelemetry (trace + Prometheus metrics)
//  3. Load the dataset and build the per-date snapshots
//  4. Create the shared document, WebSocket hub and services
//  5. Mount middleware, REST API, /ws, /metrics and the embedded frontend
//
// # Usage
//
//	application, err := app.NewApplication(frontendFS)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run stops on SIGINT/SIGTERM or when ctx is cancelled. Shutdown drains the
// HTTP server, stops the playback timer, closes every WebSocket client and
// flushes telemetry. Errors from each step are joined and returned; the
// package never calls os.Exit.
package app
