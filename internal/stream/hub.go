// Package stream pushes now-playing updates to WebSocket clients.
package stream

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/minhng/spotify-proxy-go/internal/spotify"
)

// Message is the frame sent to connected clients.
type Message struct {
	Type  string         `json:"type"`
	Track *spotify.Track `json:"track"`
}

// Hub tracks connected WebSocket clients and fans out updates.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	last    *Message
	logger  *log.Logger

	// Gorilla connections support one concurrent writer. Every WriteJSON,
	// including the replay in Add, goes through writeMu.
	writeMu sync.Mutex
}

func (h *Hub) write(conn *websocket.Conn, msg *Message) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// NewHub creates an empty Hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

// Add registers a connection, replays the last known state to it, and
// starts a reader that removes the connection on close.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	last := h.last
	h.mu.Unlock()

	if last != nil {
		if err := h.write(conn, last); err != nil {
			h.Remove(conn)
			return
		}
	}

	// Clients never send application data; the reader only detects close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.Remove(conn)
				return
			}
		}
	}()
}

// Remove unregisters and closes a connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, exists := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if exists {
		conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every connected client and remembers it
// for replay to clients that connect later.
func (h *Hub) Broadcast(msg *Message) {
	h.mu.Lock()
	h.last = msg
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := h.write(conn, msg); err != nil {
			h.logger.Printf("Dropping stream client after write failure: %v", err)
			h.Remove(conn)
		}
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
