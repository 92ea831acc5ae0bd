package messaging

import "time"

const (
	RoomsExchange   = "rooms"
	RoomsQueue      = "rooms.audit"
	DeadLetterQueue = "dead_letter_queue"
)

// RoomEventData never carries message text or display names.
type RoomEventData struct {
	RoomID       string    `json:"roomId"`
	ConnectionID string    `json:"connectionId,omitempty"`
	MemberCount  int       `json:"memberCount"`
	MaxMembers   int       `json:"maxMembers"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	OccurredAt   time.Time `json:"occurredAt"`
}
