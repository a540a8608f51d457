package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"soilhub/internal/infrastructure"
)

// TypeConnection is sent to each client once it is registered
const TypeConnection = "connection"

// broadcastBuffer bounds the events waiting for the hub loop
const broadcastBuffer = 64

// Message is the JSON frame sent to clients
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts service events to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	count   int
	running bool
	done    chan struct{}

	metrics *infrastructure.AnalysisMetrics
	logger  *slog.Logger
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
	}
}

// Start runs the hub loop until ctx is cancelled
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run(ctx)
}

// Done is closed once the hub loop has stopped and every client is released
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			h.recordClients(ctx, 1)

			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if data, err := encode(TypeConnection, map[string]string{"status": "connected", "client_id": client.id}, ""); err == nil {
				client.send <- data
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; !ok {
				continue
			}
			h.remove(client)
			h.recordClients(ctx, -1)

			h.logger.InfoContext(ctx, "Client unregistered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			sent, dropped := 0, 0
			for client := range h.clients {
				select {
				case client.send <- message:
					sent++
				default:
					// a client that cannot keep up is disconnected
					dropped++
					h.remove(client)
					h.recordClients(ctx, -1)
					h.logger.WarnContext(ctx, "Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			if h.metrics != nil {
				h.metrics.NotificationsSent.Add(ctx, int64(sent))
				if dropped > 0 {
					h.metrics.NotificationsDropped.Add(ctx, int64(dropped), metric.WithAttributes(attribute.String("reason", "client_full")))
				}
			}
			h.logger.Debug("Broadcast message to clients",
				slog.Int("sent", sent),
				slog.Int("dropped", dropped),
				slog.Int("message_size", len(message)))
		}
	}
}

// Publish queues an event for every client. It never blocks: when the queue
// is full the event is dropped.
func (h *Hub) Publish(ctx context.Context, eventType string, data any) {
	traceID := infrastructure.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = infrastructure.GetTraceID(ctx)
	}

	message, err := encode(eventType, data, traceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("message_type", eventType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- message:
	default:
		if h.metrics != nil {
			h.metrics.NotificationsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "queue_full")))
		}
		h.logger.WarnContext(ctx, "Broadcast queue full, event dropped",
			slog.String("message_type", eventType))
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount(len(h.clients))
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		h.remove(client)
		h.recordClients(context.Background(), -1)
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

func (h *Hub) recordClients(ctx context.Context, delta int64) {
	if h.metrics != nil {
		h.metrics.NotificationClients.Add(ctx, delta)
	}
}

func encode(eventType string, data any, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
}
