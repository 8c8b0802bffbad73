package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	MessageTypeConnected    = "connected"
	MessageTypeNotification = "notification"
)

// ErrNotConnected is returned when a user has no open connection.
var ErrNotConnected = errors.New("user not connected")

// Message is what the hub writes to a socket.
type Message struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Client is one open connection of an authenticated user.
type Client struct {
	UserID int64
	Conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *Client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Hub tracks open connections per user. A user may be connected from
// several tabs at once.
type Hub struct {
	clients    map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserID]; ok {
				delete(conns, client)
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mu.Unlock()
			client.Conn.Close()
		case <-ctx.Done():
			h.mu.Lock()
			for _, conns := range h.clients {
				for client := range conns {
					client.Conn.Close()
				}
			}
			h.clients = make(map[int64]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// SendToUser writes payload to every connection of userID.
func (h *Hub) SendToUser(userID int64, payload interface{}) error {
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		conns = append(conns, client)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return ErrNotConnected
	}
	var firstErr error
	for _, client := range conns {
		if err := client.write(Message{Type: MessageTypeNotification, Data: payload}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Connected reports whether userID has at least one open connection.
func (h *Hub) Connected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
