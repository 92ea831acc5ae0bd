package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated  RoomEventType = "room_created"
	EventRoomDeleted  RoomEventType = "room_deleted"
	EventRoomExpired  RoomEventType = "room_expired"
	EventMemberJoined RoomEventType = "member_joined"
	EventMemberLeft   RoomEventType = "member_left"
	EventRoomFull     RoomEventType = "room_full_rejected"
)

// RoomAuditLog records lifecycle facts only. Message text and display names
// are never stored.
type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	EnsureIndexes(ctx context.Context) error
}

func newAuditLog(roomID string, eventType RoomEventType, at time.Time, metadata map[string]any) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: eventType,
		Timestamp: at,
		Metadata:  metadata,
	}
}

func NewRoomCreatedLog(roomID string, at time.Time, ttl time.Duration, maxMembers int) *RoomAuditLog {
	return newAuditLog(roomID, EventRoomCreated, at, map[string]any{
		"expiry_seconds": ttl.Seconds(),
		"max_members":    maxMembers,
	})
}

func NewRoomDeletedLog(roomID string, at time.Time, lifetime time.Duration) *RoomAuditLog {
	return newAuditLog(roomID, EventRoomDeleted, at, map[string]any{
		"lifetime_seconds": lifetime.Seconds(),
	})
}

func NewRoomExpiredLog(roomID string, at time.Time, memberCount int) *RoomAuditLog {
	return newAuditLog(roomID, EventRoomExpired, at, map[string]any{
		"member_count": memberCount,
	})
}

func NewMemberJoinedLog(roomID string, at time.Time, memberCount int) *RoomAuditLog {
	return newAuditLog(roomID, EventMemberJoined, at, map[string]any{
		"member_count": memberCount,
	})
}

func NewMemberLeftLog(roomID string, at time.Time, memberCount int) *RoomAuditLog {
	return newAuditLog(roomID, EventMemberLeft, at, map[string]any{
		"member_count": memberCount,
	})
}

func NewRoomFullRejectionLog(roomID string, at time.Time, maxMembers int) *RoomAuditLog {
	return newAuditLog(roomID, EventRoomFull, at, map[string]any{
		"max_members": maxMembers,
	})
}
