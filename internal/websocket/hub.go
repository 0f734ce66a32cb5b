package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"covidpulse/internal/infrastructure"
	"covidpulse/pkg/contracts/events"
)

// ErrHubStopped is returned when broadcasting through a stopped hub
var ErrHubStopped = errors.New("websocket hub stopped")

// HubOptions configures a Hub
type HubOptions struct {
	Handler        CommandHandler
	Metrics        *infrastructure.BusinessMetrics
	SendBufferSize int
	PingPeriod     time.Duration
	PongWait       time.Duration
	// StatsInterval is how often hub counters are logged; zero disables it
	StatsInterval time.Duration
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Messages for a single client, e.g. command errors
	direct chan directMessage

	mu     sync.RWMutex
	logger *slog.Logger

	handler CommandHandler
	stats   *Metrics
	otel    *infrastructure.BusinessMetrics

	sendBufferSize int
	pingPeriod     time.Duration
	pongWait       time.Duration
	statsInterval  time.Duration

	// Control
	quit    chan struct{}
	running bool
	stopped bool
}

type directMessage struct {
	client  *Client
	payload []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger, opts HubOptions) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopBusinessMetrics()
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = 256
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = (opts.PongWait * 9) / 10
	}

	return &Hub{
		broadcast:      make(chan []byte, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		direct:         make(chan directMessage, 64),
		clients:        make(map[*Client]bool),
		logger:         logger.With(slog.String("component", "websocket.hub")),
		handler:        opts.Handler,
		stats:          NewMetrics(),
		otel:           opts.Metrics,
		sendBufferSize: opts.SendBufferSize,
		pingPeriod:     opts.PingPeriod,
		pongWait:       opts.PongWait,
		statsInterval:  opts.StatsInterval,
		quit:           make(chan struct{}),
	}
}

// SetHandler sets the command handler. It must be called before Start.
func (h *Hub) SetHandler(handler CommandHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

// Start starts the hub's goroutines
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running || h.stopped {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()

	if h.statsInterval > 0 {
		go h.reportMetrics()
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.closeClients()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)

		case dm := <-h.direct:
			h.mu.RLock()
			_, ok := h.clients[dm.client]
			h.mu.RUnlock()
			if ok {
				dm.client.enqueue(dm.payload)
			}
		}
	}
}

// closeClients closes every send channel; only the Run goroutine or a
// never-started hub may call it
func (h *Hub) closeClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	h.stats.RecordConnection()
	h.otel.WebSocketClients.Add(ctx, 1)

	h.deliver(ctx, client, events.NewMessage(events.MessageTypeConnection, events.ConnectionData{
		Status:   "connected",
		Message:  "Connected to COVID-19 dashboard",
		ClientID: client.id,
	}, client.traceID))

	if h.handler == nil {
		return
	}
	state, err := h.handler.InitialState(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to build initial state",
			slog.String("client_id", client.id),
			slog.String("error", err.Error()))
		h.deliver(ctx, client, errorMessage("", events.ErrCodeServerError, "Dashboard state unavailable", nil, client.traceID))
		return
	}
	h.deliver(ctx, client, events.NewMessage(events.MessageTypeDocumentState, state, client.traceID))
}

// deliver queues msg for one client; Run goroutine only
func (h *Hub) deliver(ctx context.Context, client *Client, msg events.WebSocketMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}
	if !client.enqueue(payload) {
		h.stats.RecordDroppedMessage()
		h.logger.WarnContext(ctx, "Client send buffer full, message dropped",
			slog.String("client_id", client.id),
			slog.String("message_type", string(msg.Type)))
	}
}

// SendTo queues msg for one client from any goroutine
func (h *Hub) SendTo(ctx context.Context, client *Client, msg events.WebSocketMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.direct <- directMessage{client: client, payload: payload}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func errorMessage(commandID, code, message string, details interface{}, traceID string) events.WebSocketMessage {
	return events.NewMessage(events.MessageTypeError, events.ErrorData{
		Code:      code,
		Message:   message,
		CommandID: commandID,
		Details:   details,
	}, traceID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	duration := time.Since(client.connectedAt)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", duration))

	h.stats.RecordDisconnection(duration)
	h.otel.WebSocketClients.Add(ctx, -1)
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	failCount := 0
	for _, client := range clients {
		if !client.enqueue(message) {
			failCount++
			h.stats.RecordDroppedMessage()
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
			h.removeClient(client)
		}
	}

	h.logger.Debug("Broadcast message to clients",
		slog.Int("client_count", len(clients)),
		slog.Int("fail_count", failCount),
		slog.Int("message_size", len(message)))
}

// Broadcast sends a typed message to every connected client
func (h *Hub) Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) error {
	msg := events.NewMessage(msgType, data, infrastructure.GetTraceID(ctx))
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msgType)))
		return err
	}

	select {
	case <-h.quit:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- payload:
		return nil
	case <-h.quit:
		return ErrHubStopped
	default:
		h.stats.RecordDroppedMessage()
		h.logger.WarnContext(ctx, "Broadcast queue full, dropping message",
			slog.String("message_type", string(msgType)))
		return nil
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Running reports whether the hub loop is active
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Stop gracefully stops the hub and closes every client's send channel
func (h *Hub) Stop() {
	h.mu.Lock()

	if h.stopped {
		h.mu.Unlock()
		return
	}
	started := h.running
	h.stopped = true
	h.running = false
	close(h.quit)
	h.mu.Unlock()

	// A running loop closes the clients itself when it sees quit
	if !started {
		h.closeClients()
	}
}

// dispatch runs one command through the handler and reports failures to the sender
func (h *Hub) dispatch(ctx context.Context, client *Client, cmd events.Command) {
	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()

	status := "success"
	defer func() {
		h.stats.RecordCommand(string(cmd.Type), status == "success")
		h.otel.WebSocketCommands.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", string(cmd.Type)),
			attribute.String("status", status),
		))
	}()

	if handler == nil {
		status = "unsupported"
		h.replyError(ctx, client, cmd.ID, events.ErrCodeUnsupportedCommand, "No command handler", nil)
		return
	}

	if err := handler.HandleCommand(ctx, cmd); err != nil {
		status = "failure"
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			h.replyError(ctx, client, cmd.ID, cmdErr.Code, cmdErr.Message, cmdErr.Details)
			h.logger.WarnContext(ctx, "Command rejected",
				slog.String("client_id", client.id),
				slog.String("command", string(cmd.Type)),
				slog.String("code", cmdErr.Code))
			return
		}
		h.replyError(ctx, client, cmd.ID, events.ErrCodeServerError, "Command failed", nil)
		h.logger.ErrorContext(ctx, "Command failed",
			slog.String("client_id", client.id),
			slog.String("command", string(cmd.Type)),
			slog.String("error", err.Error()))
	}
}

// replyError sends an error message to the client that issued a command
func (h *Hub) replyError(ctx context.Context, client *Client, commandID, code, message string, details interface{}) {
	if err := h.SendTo(ctx, client, errorMessage(commandID, code, message, details, client.traceID)); err != nil {
		h.logger.DebugContext(ctx, "Could not send error reply",
			slog.String("client_id", client.id),
			slog.String("error", err.Error()))
	}
}

// reportMetrics periodically logs hub metrics
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(h.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			h.logger.Info("WebSocket hub metrics",
				slog.Int("active_clients", h.ClientCount()),
				slog.Int("broadcast_queue", len(h.broadcast)),
				slog.Any("stats", h.stats.GetSnapshot()),
			)
		}
	}
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	snapshot := h.stats.GetSnapshot()
	snapshot["active_clients"] = h.ClientCount()
	snapshot["running"] = h.Running()
	return snapshot
}
