// Package presence tracks live connections per user and fans events out to them.
package presence

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event names pushed to clients.
const (
	EventNewMessage               = "new_message"
	EventNewMatch                 = "new_match"
	EventTradeConfirmed           = "trade_confirmed"
	EventTradeConfirmationPending = "trade_confirmation_pending"
	EventMatchCancelled           = "match_cancelled"
	EventPong                     = "pong"
	EventError                    = "error"
)

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Envelope is the frame format of every server push.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Notifier is what the domain services use to push events.
type Notifier interface {
	SendToUser(userID uuid.UUID, event string, data interface{})
	BroadcastToUsers(userIDs []uuid.UUID, event string, data interface{})
}

// guardedConn serializes writes; a websocket connection allows one writer at a time.
type guardedConn struct {
	mu sync.Mutex
	Conn
}

func (g *guardedConn) WriteMessage(messageType int, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Conn.WriteMessage(messageType, data)
}

// Hub manages active connections keyed by user ID. Delivery is best effort
// and at most once: offline users receive nothing and nothing is queued.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]map[*guardedConn]struct{}
	logger *zap.Logger
}

var _ Notifier = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]map[*guardedConn]struct{}),
		logger: logger.Named("PresenceHub"),
	}
}

// Connect registers conn for userID. Callers must do all of their own writes
// through the returned handle so they never race the hub's pushes.
func (h *Hub) Connect(conn Conn, userID uuid.UUID) Conn {
	g := &guardedConn{Conn: conn}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*guardedConn]struct{})
	}
	h.conns[userID][g] = struct{}{}
	return g
}

// Disconnect removes conn, which may be either the handle returned by Connect
// or the raw connection passed to it. The user entry is dropped with its last
// connection.
func (h *Hub) Disconnect(conn Conn, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn, userID)
}

func (h *Hub) removeLocked(conn Conn, userID uuid.UUID) {
	set, ok := h.conns[userID]
	if !ok {
		return
	}
	for g := range set {
		if g == conn || g.Conn == conn {
			delete(set, g)
		}
	}
	if len(set) == 0 {
		delete(h.conns, userID)
	}
}

// SendToUser pushes {event, data} to every live connection of userID.
// Connections that fail the write are closed and dropped. It never fails.
func (h *Hub) SendToUser(userID uuid.UUID, event string, data interface{}) {
	h.mu.RLock()
	set := h.conns[userID]
	targets := make([]*guardedConn, 0, len(set))
	for g := range set {
		targets = append(targets, g)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}

	var dead []*guardedConn
	for _, g := range targets {
		if err := g.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("Dropping dead connection",
				zap.String("userID", userID.String()),
				zap.String("event", event),
				zap.Error(err),
			)
			dead = append(dead, g)
		}
	}
	if len(dead) == 0 {
		return
	}

	for _, g := range dead {
		_ = g.Close()
	}
	h.mu.Lock()
	for _, g := range dead {
		h.removeLocked(g, userID)
	}
	h.mu.Unlock()
}

// BroadcastToUsers calls SendToUser for each user in turn. There is no
// ordering or atomicity across recipients.
func (h *Hub) BroadcastToUsers(userIDs []uuid.UUID, event string, data interface{}) {
	for _, id := range userIDs {
		h.SendToUser(id, event, data)
	}
}

// IsOnline reports whether userID has at least one live connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// OnlineUsers is the number of users with a live connection.
func (h *Hub) OnlineUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ConnectionCount is the total number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}
