// internal/notify/hub.go
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event is a realtime notification pushed to a connected user.
type Event struct {
	Kind      string         `json:"kind"`
	ActorID   uuid.UUID      `json:"actorId"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Hub tracks websocket connections per user and fans events out to them.
// Delivery is best-effort: a slow or dead socket is dropped, never waited on
// by the caller.
type Hub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]map[*websocket.Conn]struct{}
	log   *logrus.Logger
}

// NewHub constructs an empty Hub.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		conns: make(map[uuid.UUID]map[*websocket.Conn]struct{}),
		log:   log,
	}
}

// Register adds a connection for the user. A user may hold several
// connections (multiple tabs/devices).
func (h *Hub) Register(userID uuid.UUID, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.conns[userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a connection for the user.
func (h *Hub) Unregister(userID uuid.UUID, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Publish sends the event to every connection the recipient holds. Failed
// writes close and drop the connection.
func (h *Hub) Publish(recipientID uuid.UUID, event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Warn("marshal notification event")
		return
	}

	h.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(h.conns[recipientID]))
	for c := range h.conns[recipientID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.log.WithError(err).WithField("recipient_id", recipientID).Debug("dropping dead notification socket")
			c.Close(websocket.StatusNormalClosure, "write failed")
			h.Unregister(recipientID, c)
		}
	}
}
