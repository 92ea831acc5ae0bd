package domain

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxMembers = 10
	DefaultRoomTTL    = time.Hour
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrRoomExpired    = errors.New("room has expired")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
	ErrMemberNotFound = errors.New("member not found")
	ErrAlreadyInRoom  = errors.New("already in room")
	ErrInvalidInput   = errors.New("invalid input")
)

// Room is a point-in-time snapshot of a room held by the registry.
// Members are in arrival order; the first one is the admin for display.
type Room struct {
	ID         string    `json:"id"`
	Members    []Member  `json:"members"`
	MaxMembers int       `json:"maxMembers"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (r Room) IsFull() bool {
	return len(r.Members) >= r.MaxMembers
}

func (r Room) IsAdmin(connectionID string) bool {
	return len(r.Members) > 0 && r.Members[0].ConnectionID == connectionID
}

func (r Room) FindMember(connectionID string) (Member, bool) {
	for _, m := range r.Members {
		if m.ConnectionID == connectionID {
			return m, true
		}
	}
	return Member{}, false
}

// ConnectionIDs returns the member connection ids in arrival order.
func (r Room) ConnectionIDs() []string {
	ids := make([]string, len(r.Members))
	for i, m := range r.Members {
		ids[i] = m.ConnectionID
	}
	return ids
}

// JoinRequest carries everything Join needs. TTL only applies when the
// join creates the room. Admit, if set, runs under the room lock against the
// existing room before capacity is checked; its error aborts the join.
type JoinRequest struct {
	RoomID       string
	DisplayName  string
	ConnectionID string
	TTL          time.Duration
	Admit        func(Room) error
}

type RegistryStats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
}

// RoomRegistry is the sole authority over which rooms and members exist.
//
// Join creates the room when the id is unknown. Leave deletes any room it
// empties. Neither Join nor Send look at expiry.
type RoomRegistry interface {
	Join(ctx context.Context, req JoinRequest) (Room, error)
	Leave(ctx context.Context, connectionID string) []string
	Send(ctx context.Context, roomID, senderConnectionID, senderName, text string) (Message, error)
	Get(ctx context.Context, roomID string) (Room, error)
	Stats() RegistryStats
}
