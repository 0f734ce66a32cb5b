// Package http implements the HTTP handlers of the dashboard server.
// Handlers stay thin: they parse and validate the request, call a service
// and render the result. Business logic belongs to internal/services.
//
// # Routes
//
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//	GET  /api/dashboard/state, /dates, /countries, /snapshots/{date}
//	PUT  /api/dashboard/slider        {"value": n}
//	POST /api/dashboard/playback/toggle
//	POST /api/dashboard/step
//	GET  /api/chart/{date}.{svg|png}   date may be "current"
//	GET  /api/metrics, /api/metrics/websocket
//	POST /api/logs
//
// # Error Handling
//
// Errors are returned as RFC 7807 Problem Details through
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/dashboard/slider-out-of-range",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "Slider value 9 is outside [0, 2]",
//	    "instance": "/api/dashboard/slider",
//	    "error_code": "SLIDER_OUT_OF_RANGE"
//	}
//
// Service errors are mapped to API errors by toAPIError.
package http
