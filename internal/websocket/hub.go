package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/filipesmpacheco/projdataviz/internal/infrastructure"
)

// Event type constants pushed to dashboard clients.
const (
	TypeConnection     = "connection"
	TypeDatasetCreated = "dataset:created"
	TypeDatasetDeleted = "dataset:deleted"
)

// Hub maintains the set of active clients and broadcasts dataset
// lifecycle events to them.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages fanned out to every client
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	logger *slog.Logger

	// Control
	quit    chan struct{}
	running bool
}

// Envelope is the wire format for every hub message.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

// Start starts the hub's main loop. Safe to call more than once.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run processes register, unregister and broadcast requests until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("active_clients", count))
			h.greet(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client unregistered",
				slog.String("client_id", client.id),
				slog.Int("active_clients", count))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("dropped slow client",
						slog.String("client_id", client.id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts the hub down and disconnects all clients.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
}

// Register queues a client for registration with the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal. Returns immediately when
// the hub has already stopped so disconnecting pumps never block.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast fans an event out to every connected client.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(Envelope{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast channel full, dropping message",
			slog.String("type", eventType))
	}
}

// greet sends a connection acknowledgement to a newly registered client.
func (h *Hub) greet(client *Client) {
	payload, err := json.Marshal(Envelope{
		Type:      TypeConnection,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      map[string]string{"client_id": client.id, "status": "connected"},
	})
	if err != nil {
		return
	}

	select {
	case client.send <- payload:
	default:
	}
}

// BroadcastDatasetCreated notifies clients that a new dataset is available.
func (h *Hub) BroadcastDatasetCreated(data interface{}) {
	h.Broadcast(TypeDatasetCreated, data)
}

// BroadcastDatasetDeleted notifies clients that a dataset was removed.
func (h *Hub) BroadcastDatasetDeleted(id string) {
	h.Broadcast(TypeDatasetDeleted, map[string]string{"id": id})
}
