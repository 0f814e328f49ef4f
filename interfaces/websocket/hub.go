package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Hub maintains active WebSocket connections and fans registry events
// out to every subscriber. The event stream is fire-and-forget: a client
// that cannot keep up is disconnected rather than buffered without bound.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	messagesSent   int64
	messagesFailed int64
}

// Message is one frame pushed to subscribers.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan *Message, 1000),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

// Run starts the hub's main event loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("WebSocket client connected",
				zap.String("client_id", client.id),
				zap.Int("total_clients", len(h.clients)),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.broadcast:
			h.broadcastToAll(message)
		}
	}
}

// Stop gracefully shuts down the hub.
func (h *Hub) Stop() {
	h.cancel()
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(messageType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	message := &Message{
		Type:      messageType,
		Data:      jsonData,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- message:
		return nil
	default:
		atomic.AddInt64(&h.messagesFailed, 1)
		return fmt.Errorf("broadcast channel full, message dropped")
	}
}

func (h *Hub) broadcastToAll(message *Message) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	for client := range h.clients {
		select {
		case client.send <- payload:
			atomic.AddInt64(&h.messagesSent, 1)
		default:
			// Client can't keep up; drop it.
			atomic.AddInt64(&h.messagesFailed, 1)
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) closeAllClients() {
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
