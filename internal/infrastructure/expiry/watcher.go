package expiry

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
)

type RoomReader interface {
	Get(ctx context.Context, roomID string) (domain.Room, error)
}

type Notifier interface {
	RoomExpired(room domain.Room)
}

// Notifiers fans one expiry out to several notifiers, in order.
type Notifiers []Notifier

func (n Notifiers) RoomExpired(room domain.Room) {
	for _, notifier := range n {
		notifier.RoomExpired(room)
	}
}

// Watcher tells the members of a room when its deadline passes. It only
// notifies: expired rooms stay in the registry until their last member leaves.
type Watcher struct {
	domain.NopRoomObserver

	rooms    RoomReader
	notifier Notifier
	logger   logging.Logger
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*armed
}

type armed struct {
	timer     *time.Timer
	createdAt time.Time
}

func NewWatcher(rooms RoomReader, notifier Notifier, logger logging.Logger, now func() time.Time) *Watcher {
	if now == nil {
		now = time.Now
	}
	return &Watcher{
		rooms:    rooms,
		notifier: notifier,
		logger:   logger,
		now:      now,
		timers:   make(map[string]*armed),
	}
}

// SetRooms lets the registry be attached after it was built with this
// watcher as one of its observers.
func (w *Watcher) SetRooms(rooms RoomReader) {
	w.mu.Lock()
	w.rooms = rooms
	w.mu.Unlock()
}

func (w *Watcher) RoomCreated(room domain.Room) {
	delay := room.ExpiresAt.Sub(w.now())
	if delay < 0 {
		delay = 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.timers[room.ID]; ok {
		prev.timer.Stop()
	}

	createdAt := room.CreatedAt
	w.timers[room.ID] = &armed{
		createdAt: createdAt,
		timer: time.AfterFunc(delay, func() {
			w.fire(room.ID, createdAt)
		}),
	}
}

func (w *Watcher) RoomDeleted(room domain.Room) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if a, ok := w.timers[room.ID]; ok && a.createdAt.Equal(room.CreatedAt) {
		a.timer.Stop()
		delete(w.timers, room.ID)
	}
}

// Pending reports how many rooms still have a timer armed.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, a := range w.timers {
		a.timer.Stop()
		delete(w.timers, id)
	}
}

func (w *Watcher) fire(roomID string, createdAt time.Time) {
	w.mu.Lock()
	a, ok := w.timers[roomID]
	if ok && a.createdAt.Equal(createdAt) {
		delete(w.timers, roomID)
	}
	rooms := w.rooms
	w.mu.Unlock()

	if !ok || !a.createdAt.Equal(createdAt) || rooms == nil {
		return
	}

	room, err := rooms.Get(context.Background(), roomID)
	if err != nil {
		return
	}
	// The id may have been reused by a newer room since the timer was armed.
	if !room.CreatedAt.Equal(createdAt) {
		return
	}

	w.logger.Info(logging.Room, logging.Expiry, "room expired", map[logging.ExtraKey]any{
		logging.RoomID:      roomID,
		logging.MemberCount: len(room.Members),
	})

	w.notifier.RoomExpired(room)
}
