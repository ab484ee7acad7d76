// Package relay fans chat messages out to the websocket subscribers of a
// conversation. Persistence happens before Publish; the hub only delivers to
// whoever is connected right now.
package relay

import (
	"log/slog"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

// Subscriber is one websocket connection joined to a conversation room,
// with a write mutex serializing outbound frames.
type Subscriber struct {
	ID      string // connection ID (UUID)
	UserID  uint64
	Conn    net.Conn
	writeMu sync.Mutex
}

// WriteMessage sends a text frame to this subscriber. The write mutex
// ensures concurrent publishers do not interleave frame bytes.
func (s *Subscriber) WriteMessage(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return wsutil.WriteServerMessage(s.Conn, ws.OpText, data)
}

// Close closes the underlying network connection.
func (s *Subscriber) Close() error {
	return s.Conn.Close()
}

// Hub is a thread-safe registry of conversation rooms and their subscribers.
// Rooms are keyed by match ID and exist only while someone is connected.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uint64]map[string]*Subscriber
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uint64]map[string]*Subscriber),
		logger: logger,
	}
}

// Join registers a connection in a conversation room and returns its
// subscriber handle.
func (h *Hub) Join(matchID, userID uint64, conn net.Conn) *Subscriber {
	sub := &Subscriber{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
	}

	h.mu.Lock()
	room, ok := h.rooms[matchID]
	if !ok {
		room = make(map[string]*Subscriber)
		h.rooms[matchID] = room
	}
	room[sub.ID] = sub
	h.mu.Unlock()

	h.logger.Debug("relay join", "match_id", matchID, "user", userID, "sub", sub.ID)
	return sub
}

// Leave removes a subscriber from a room and closes its connection. Empty
// rooms are dropped. Safe to call more than once.
func (h *Hub) Leave(matchID uint64, sub *Subscriber) {
	h.mu.Lock()
	room, ok := h.rooms[matchID]
	if ok {
		delete(room, sub.ID)
		if len(room) == 0 {
			delete(h.rooms, matchID)
		}
	}
	h.mu.Unlock()

	if ok {
		_ = sub.Close()
		h.logger.Debug("relay leave", "match_id", matchID, "sub", sub.ID)
	}
}

// Publish delivers a message to every subscriber in a room. Write errors on
// individual connections are logged and skipped; the failed connection is
// cleaned up when its read loop exits.
func (h *Hub) Publish(matchID uint64, data []byte) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.rooms[matchID]))
	for _, sub := range h.rooms[matchID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.WriteMessage(data); err != nil {
			h.logger.Debug("relay write failed", "match_id", matchID, "sub", sub.ID, "err", err)
		}
	}
}

// RoomSize returns how many subscribers a room currently has.
func (h *Hub) RoomSize(matchID uint64) int {
	h.mu.RLock()
	n := len(h.rooms[matchID])
	h.mu.RUnlock()
	return n
}
