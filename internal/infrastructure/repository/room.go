package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
)

type roomState struct {
	mu        sync.Mutex
	id        string
	members   []domain.Member
	createdAt time.Time
	expiresAt time.Time
	// closed is set once the room has been removed from the registry map.
	// A join that raced with the removal must retry against a fresh room.
	closed bool
}

func (s *roomState) snapshot(maxMembers int) domain.Room {
	members := make([]domain.Member, len(s.members))
	copy(members, s.members)

	return domain.Room{
		ID:         s.id,
		Members:    members,
		MaxMembers: maxMembers,
		CreatedAt:  s.createdAt,
		ExpiresAt:  s.expiresAt,
	}
}

func (s *roomState) indexOf(connectionID string) int {
	for i, m := range s.members {
		if m.ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

// RoomRegistry keeps every live room in memory.
// Lock order is always room -> registry.
type RoomRegistry struct {
	rooms       map[string]*roomState // roomID -> room
	memberships map[string]string     // connectionID -> roomID
	mu          sync.Mutex

	maxMembers       int
	defaultTTL       time.Duration
	maxMessageLength int
	now              func() time.Time
	observer         domain.RoomObserver
}

type Option func(*RoomRegistry)

func WithMaxMembers(n int) Option {
	return func(r *RoomRegistry) {
		if n > 0 {
			r.maxMembers = n
		}
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(r *RoomRegistry) {
		if ttl > 0 {
			r.defaultTTL = ttl
		}
	}
}

func WithMaxMessageLength(n int) Option {
	return func(r *RoomRegistry) {
		r.maxMessageLength = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *RoomRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithObserver(observers ...domain.RoomObserver) Option {
	return func(r *RoomRegistry) {
		switch len(observers) {
		case 0:
		case 1:
			r.observer = observers[0]
		default:
			r.observer = domain.MultiObserver(observers)
		}
	}
}

func NewRoomRegistry(opts ...Option) *RoomRegistry {
	r := &RoomRegistry{
		rooms:            make(map[string]*roomState),
		memberships:      make(map[string]string),
		maxMembers:       domain.DefaultMaxMembers,
		defaultTTL:       domain.DefaultRoomTTL,
		maxMessageLength: domain.DefaultMaxMessageLength,
		now:              time.Now,
		observer:         domain.NopRoomObserver{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

var _ domain.RoomRegistry = (*RoomRegistry)(nil)

// acquire returns the locked state for roomID, creating it when absent.
// The second result reports whether this call made the room.
func (r *RoomRegistry) acquire(roomID string, ttl time.Duration) (*roomState, bool) {
	for {
		r.mu.Lock()
		state, ok := r.rooms[roomID]
		if !ok {
			now := r.now()
			state = &roomState{
				id:        roomID,
				members:   make([]domain.Member, 0, r.maxMembers),
				createdAt: now,
				expiresAt: now.Add(ttl),
			}
			// Nobody else can see the new state yet, so locking it while
			// holding the registry lock cannot deadlock.
			state.mu.Lock()
			r.rooms[roomID] = state
			r.mu.Unlock()
			return state, true
		}
		r.mu.Unlock()

		state.mu.Lock()
		if !state.closed {
			return state, false
		}
		state.mu.Unlock()
	}
}

// lookup returns the locked state for roomID or nil.
func (r *RoomRegistry) lookup(roomID string) *roomState {
	r.mu.Lock()
	state, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	state.mu.Lock()
	if state.closed {
		state.mu.Unlock()
		return nil
	}
	return state
}

// removeLocked drops an empty room from the map. Caller holds state.mu.
func (r *RoomRegistry) removeLocked(state *roomState) {
	state.closed = true

	r.mu.Lock()
	if current, ok := r.rooms[state.id]; ok && current == state {
		delete(r.rooms, state.id)
	}
	r.mu.Unlock()
}

// Join admits a connection into roomID, creating the room on first join.
// A room created by a join that is then rejected does not survive.
func (r *RoomRegistry) Join(ctx context.Context, req domain.JoinRequest) (domain.Room, error) {
	if req.RoomID == "" {
		return domain.Room{}, domain.ErrInvalidInput
	}

	member, err := domain.NewMember(req.ConnectionID, req.DisplayName, r.now())
	if err != nil {
		return domain.Room{}, err
	}

	r.mu.Lock()
	current, inRoom := r.memberships[req.ConnectionID]
	r.mu.Unlock()
	if inRoom {
		return domain.Room{}, fmt.Errorf("connection %s is in room %s: %w", req.ConnectionID, current, domain.ErrAlreadyInRoom)
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = r.defaultTTL
	}

	state, created := r.acquire(req.RoomID, ttl)
	defer state.mu.Unlock()

	if created {
		r.observer.RoomCreated(state.snapshot(r.maxMembers))
	}

	reject := func(reason error) (domain.Room, error) {
		room := state.snapshot(r.maxMembers)
		r.observer.JoinRejected(room, reason)
		if len(state.members) == 0 {
			r.removeLocked(state)
			r.observer.RoomDeleted(room)
		}
		return room, reason
	}

	if !created && req.Admit != nil {
		if err := req.Admit(state.snapshot(r.maxMembers)); err != nil {
			return reject(err)
		}
	}

	if len(state.members) >= r.maxMembers {
		return reject(domain.ErrRoomFull)
	}

	r.mu.Lock()
	if other, ok := r.memberships[req.ConnectionID]; ok {
		r.mu.Unlock()
		return reject(fmt.Errorf("connection %s is in room %s: %w", req.ConnectionID, other, domain.ErrAlreadyInRoom))
	}
	r.memberships[req.ConnectionID] = state.id
	r.mu.Unlock()

	state.members = append(state.members, *member)

	room := state.snapshot(r.maxMembers)
	r.observer.MembersChanged(room)

	return room, nil
}

// Leave removes connectionID from whichever room it belongs to and returns
// the ids of the rooms it touched. Rooms left empty are deleted on the spot.
func (r *RoomRegistry) Leave(ctx context.Context, connectionID string) []string {
	r.mu.Lock()
	roomID, ok := r.memberships[connectionID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	state := r.lookup(roomID)
	if state == nil {
		r.forget(connectionID, roomID)
		return nil
	}
	defer state.mu.Unlock()

	idx := state.indexOf(connectionID)
	r.forget(connectionID, roomID)
	if idx == -1 {
		return nil
	}

	// Keep arrival order; the first member is the admin.
	state.members = append(state.members[:idx], state.members[idx+1:]...)

	room := state.snapshot(r.maxMembers)
	if len(state.members) == 0 {
		r.removeLocked(state)
		r.observer.RoomDeleted(room)
	} else {
		r.observer.MembersChanged(room)
	}

	return []string{roomID}
}

func (r *RoomRegistry) forget(connectionID, roomID string) {
	r.mu.Lock()
	if r.memberships[connectionID] == roomID {
		delete(r.memberships, connectionID)
	}
	r.mu.Unlock()
}

// Send builds a message for the room's current members. It does not check
// expiry; that is the caller's gate.
func (r *RoomRegistry) Send(ctx context.Context, roomID, senderConnectionID, senderName, text string) (domain.Message, error) {
	state := r.lookup(roomID)
	if state == nil {
		return domain.Message{}, domain.ErrRoomNotFound
	}
	defer state.mu.Unlock()

	msg, err := domain.NewMessage(roomID, senderConnectionID, senderName, text, r.maxMessageLength, r.now())
	if err != nil {
		return domain.Message{}, err
	}

	if state.indexOf(senderConnectionID) == -1 {
		return domain.Message{}, domain.ErrMemberNotFound
	}

	r.observer.MessagePosted(state.snapshot(r.maxMembers), *msg)

	return *msg, nil
}

func (r *RoomRegistry) Get(ctx context.Context, roomID string) (domain.Room, error) {
	if roomID == "" {
		return domain.Room{}, domain.ErrInvalidInput
	}

	state := r.lookup(roomID)
	if state == nil {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	defer state.mu.Unlock()

	return state.snapshot(r.maxMembers), nil
}

func (r *RoomRegistry) Stats() domain.RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return domain.RegistryStats{
		Rooms:   len(r.rooms),
		Members: len(r.memberships),
	}
}

func (r *RoomRegistry) MaxMembers() int {
	return r.maxMembers
}
