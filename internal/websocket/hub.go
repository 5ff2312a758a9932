package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"collectdash/internal/infrastructure"
)

// Event types pushed to clients.
const (
	TypeConnection         = "connection"
	TypeDashboardRefreshed = "dashboard:refreshed"
	TypeRefreshFailed      = "dashboard:refresh_failed"
)

// ErrHubStopped is returned by Broadcast after Stop.
var ErrHubStopped = errors.New("websocket hub stopped")

// Event is the JSON envelope of every server push.
type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

type outbound struct {
	ctx     context.Context
	event   string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts events to them.
// Only the Run goroutine mutates the client set.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	now     func() time.Time

	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	quit    chan struct{}
	done    chan struct{}
	running bool
	stopped bool
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		now:        time.Now,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. It is idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running || h.stopped {
		return
	}
	h.running = true
	go h.Run()
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "normal")

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	h.mu.Unlock()

	ctx := client.context()
	infrastructure.RecordWebSocketClient(ctx, h.metrics, 1)
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	payload, err := h.encode(ctx, TypeConnection, map[string]any{
		"status":    "connected",
		"client_id": client.id,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
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
	infrastructure.RecordWebSocketClient(ctx, h.metrics, -1)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", h.now().Sub(client.connectedAt)))
}

func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var delivered, dropped int
	for _, client := range clients {
		select {
		case client.send <- msg.payload:
			delivered++
		default:
			dropped++
			h.removeClient(client, "send buffer full")
		}
	}

	h.mu.Lock()
	h.messagesSent += int64(delivered)
	h.droppedClients += int64(dropped)
	h.mu.Unlock()

	infrastructure.RecordBroadcast(msg.ctx, h.metrics, msg.event, dropped)
	h.logger.DebugContext(msg.ctx, "Broadcast delivered",
		slog.String("event", msg.event),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) encode(ctx context.Context, eventType string, data any) ([]byte, error) {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		Data:      data,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling event",
			slog.String("event", eventType),
			slog.String("error", err.Error()))
		return nil, err
	}
	return payload, nil
}

// Broadcast queues an event for every connected client. It blocks only while
// the queue is full.
func (h *Hub) Broadcast(ctx context.Context, eventType string, data any) error {
	select {
	case <-h.quit:
		return ErrHubStopped
	default:
	}
	payload, err := h.encode(ctx, eventType, data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{ctx: context.WithoutCancel(ctx), event: eventType, payload: payload}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.quit:
		return ErrHubStopped
	}
}

// Unregister removes a client from the hub.
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

// Stats returns connection counters for diagnostics.
func (h *Hub) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]any{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_clients":   h.droppedClients,
	}
}

// Stop closes every client and waits for the hub loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	wasRunning := h.running
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	if wasRunning {
		<-h.done
	}
}
