// Package notify delivers live progression updates to connected clients.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Gateway publishes an event to every live session of a user. Publishing to a
// user with no sessions is a no-op.
type Gateway interface {
	Publish(userID string, event string, data interface{})
}

// Hub manages connections and room-based message delivery in this process.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Conn // room -> connID -> conn
	logger *slog.Logger
}

// Conn is one subscribed session. Send is drained by the connection's writer.
type Conn struct {
	ID     string
	UserID string
	Send   chan []byte
}

// Message is the frame written to clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Conn),
		logger: logger,
	}
}

// RoomFor returns the per-user room name.
func RoomFor(userID string) string {
	return "user:" + userID
}

// Join adds a connection to a room.
func (h *Hub) Join(room string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Conn)
	}
	h.rooms[room][conn.ID] = conn
}

// Leave removes a connection from a room.
func (h *Hub) Leave(room string, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[room]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish sends event to every connection in the user's room.
func (h *Hub) Publish(userID string, event string, data interface{}) {
	h.PublishRoom(RoomFor(userID), event, data)
}

// PublishRoom sends a message to all connections in a room. A connection
// whose buffer is full misses the message.
func (h *Hub) PublishRoom(room string, event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.logger.Error("ws marshal error", "error", err, "room", room, "event", event)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.rooms[room] {
		select {
		case conn.Send <- payload:
		default:
			h.logger.Warn("ws send buffer full", "conn_id", conn.ID, "room", room, "event", event)
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, conns := range h.rooms {
		count += len(conns)
	}
	return count
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Shutdown closes every connection's send channel and empties the hub.
func (h *Hub) Shutdown(_ context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, conns := range h.rooms {
		for _, conn := range conns {
			close(conn.Send)
		}
		delete(h.rooms, room)
	}
}
