package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"covidpulse/internal/config"
	"covidpulse/internal/infrastructure"
)

// NewUpgrader builds the upgrader for /ws. Requests without an Origin header
// (same-origin or local tools) are accepted; otherwise the origin must be listed.
func NewUpgrader(cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *websocket.Upgrader {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] {
				return true
			}
			logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", allowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logger.ErrorContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
}

// ServeWS upgrades the request and attaches a new client to the hub
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := infrastructure.EnsureTraceID(r.Context())
		traceID := infrastructure.GetTraceID(ctx)

		if !hub.Running() {
			http.Error(w, "websocket hub not running", http.StatusServiceUnavailable)
			return
		}

		logger.InfoContext(ctx, "WebSocket upgrade request",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("user_agent", r.UserAgent()))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader has already replied
			logger.DebugContext(ctx, "WebSocket upgrade failed",
				slog.String("error", err.Error()))
			return
		}

		client := NewClient(hub, WrapConn(conn), traceID, logger)
		hub.Register(client)

		logger.InfoContext(ctx, "WebSocket client connected",
			slog.String("client_id", client.id),
			slog.String("remote_addr", client.remoteAddr))

		// Work continues in new goroutines so the handler returns
		go client.WritePump()
		go client.ReadPump()
	}
}
