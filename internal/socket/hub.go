package socket

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client wraps a connection with a write mutex. gorilla/websocket allows at
// most one concurrent writer per connection, and both Send and Broadcast may
// run from different request goroutines.
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(message []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Hub manages all connected WebSocket clients.
type Hub struct {
	// clients maps a userID to its connection.
	clients map[string]*client
	mu      sync.RWMutex
	log     *zap.Logger
}

// NewHub creates a new Hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log,
	}
}

// Register adds a new client to the Hub.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = &client{conn: conn}
	h.log.Info("websocket client registered", zap.String("userID", userID))
}

// Unregister removes a client from the Hub.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; ok {
		delete(h.clients, userID)
		h.log.Info("websocket client unregistered", zap.String("userID", userID))
	}
}

// Send delivers a message to one client. A missing client is not an error,
// it may simply be offline.
func (h *Hub) Send(userID string, message []byte) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.write(message)
}

// Broadcast sends a message to every connected client. Write failures for
// individual clients are logged and skipped.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	clients := make(map[string]*client, len(h.clients))
	for userID, c := range h.clients {
		clients[userID] = c
	}
	h.mu.RUnlock()

	for userID, c := range clients {
		if err := c.write(message); err != nil {
			h.log.Warn("websocket broadcast failed", zap.String("userID", userID), zap.Error(err))
		}
	}
}

// BroadcastJSON marshals v and broadcasts it to every connected client.
func (h *Hub) BroadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("websocket payload marshal failed", zap.Error(err))
		return
	}
	h.Broadcast(data)
}
