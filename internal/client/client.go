package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
)

const defaultEventBuffer = 128

var (
	ErrNotJoined = errors.New("not in a room")
	ErrClosed    = errors.New("client is closed")
)

// RoomClient is what a chat front end talks to, whether the room lives on a
// server or in this process.
type RoomClient interface {
	// Join blocks until the room admits or rejects this client. Rejections
	// are reported as domain.ErrRoomFull, domain.ErrRoomExpired or
	// domain.ErrAlreadyInRoom.
	Join(ctx context.Context, roomID, username string, duration time.Duration) error
	Send(ctx context.Context, text string) error
	Events() <-chan Event
	ConnectionID() string
	Close() error
}

// Event is one server notice. Exactly one of the payload pointers is set,
// matching Type.
type Event struct {
	Type   string
	RoomID string

	Connected *ws.ConnectedPayload
	Users     *ws.RoomUsersPayload
	Message   *ws.MessagePayload
	Notice    *ws.ErrorPayload
}

// HasMember reports whether a room_users event lists connectionID.
func (e Event) HasMember(connectionID string) bool {
	if e.Users == nil {
		return false
	}
	for _, m := range e.Users.Members {
		if m.ID == connectionID {
			return true
		}
	}
	return false
}

func (e Event) ExpiresAt() time.Time {
	if e.Users == nil {
		return time.Time{}
	}
	return time.UnixMilli(e.Users.ExpiresAt)
}

func eventFromWire(msg ws.InboundMessage) (Event, error) {
	ev := Event{Type: msg.Type, RoomID: msg.RoomID}

	var target any
	switch msg.Type {
	case ws.Connected:
		ev.Connected = &ws.ConnectedPayload{}
		target = ev.Connected
	case ws.RoomUsers:
		ev.Users = &ws.RoomUsersPayload{}
		target = ev.Users
	case ws.ReceiveMessage:
		ev.Message = &ws.MessagePayload{}
		target = ev.Message
	default:
		ev.Notice = &ws.ErrorPayload{}
		target = ev.Notice
	}

	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, target); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", msg.Type, err)
		}
	}

	return ev, nil
}

func eventFromMessage(msg *ws.WSMessage) Event {
	ev := Event{Type: msg.Type, RoomID: msg.RoomID}

	switch data := msg.Data.(type) {
	case ws.ConnectedPayload:
		ev.Connected = &data
	case ws.RoomUsersPayload:
		ev.Users = &data
	case ws.MessagePayload:
		ev.Message = &data
	case ws.ErrorPayload:
		ev.Notice = &data
	}

	return ev
}

// rejection maps a caller-only notice to the join error it stands for.
func rejection(eventType string) error {
	switch eventType {
	case ws.RoomFull:
		return domain.ErrRoomFull
	case ws.RoomExpired:
		return domain.ErrRoomExpired
	case ws.AlreadyInRoom:
		return domain.ErrAlreadyInRoom
	}
	return nil
}

// eventQueue never blocks the producer. A consumer that falls behind loses
// events, the same way a slow websocket client does.
type eventQueue struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func newEventQueue(size int) *eventQueue {
	if size <= 0 {
		size = defaultEventBuffer
	}
	return &eventQueue{ch: make(chan Event, size)}
}

func (q *eventQueue) push(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
