package ws

import (
	"sync"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
)

// Hub indexes live clients by connection id and fans registry events out to
// room members. Delivery never blocks: a full queue drops the event for that
// client only.
type Hub struct {
	domain.NopRoomObserver

	clients map[string]*Client
	mu      sync.RWMutex

	logger logging.Logger
	onDrop func(connectionID string)
}

type HubOption func(*Hub)

// WithDropHook is called for every event dropped on a full queue.
func WithDropHook(fn func(connectionID string)) HubOption {
	return func(h *Hub) {
		if fn != nil {
			h.onDrop = fn
		}
	}
}

func NewHub(logger logging.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		onDrop:  func(string) {},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// Unregister forgets the client and closes its queue, which ends its write pump.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if current, ok := h.clients[c.ID]; ok && current == c {
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()

	c.closeQueue()
}

func (h *Hub) Client(connectionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connectionID]
	return c, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo delivers msg to a single connection. Unknown connections are ignored.
func (h *Hub) SendTo(connectionID string, msg *WSMessage) bool {
	c, ok := h.Client(connectionID)
	if !ok {
		return false
	}

	if !c.Enqueue(msg) {
		h.dropped(connectionID, msg)
		return false
	}
	return true
}

// Broadcast delivers msg to every listed connection and returns how many
// queues accepted it.
func (h *Hub) Broadcast(connectionIDs []string, msg *WSMessage) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(connectionIDs))
	for _, id := range connectionIDs {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.Enqueue(msg) {
			delivered++
			continue
		}
		h.dropped(c.ID, msg)
	}
	return delivered
}

func (h *Hub) dropped(connectionID string, msg *WSMessage) {
	h.logger.Warn(logging.Room, logging.Fanout, "client buffer full, dropping event", map[logging.ExtraKey]any{
		logging.ConnectionID: connectionID,
		logging.RoomID:       msg.RoomID,
		logging.EventType:    msg.Type,
	})
	h.onDrop(connectionID)
}

func (h *Hub) MembersChanged(room domain.Room) {
	h.Broadcast(room.ConnectionIDs(), NewRoomUsers(room))
}

func (h *Hub) MessagePosted(room domain.Room, msg domain.Message) {
	h.Broadcast(room.ConnectionIDs(), NewReceiveMessage(msg))
}

// RoomExpired is called by the expiry watcher once a room's deadline passes.
func (h *Hub) RoomExpired(room domain.Room) {
	h.Broadcast(room.ConnectionIDs(), NewRoomExpired(room.ID))
}
