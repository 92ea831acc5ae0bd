package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
)

type WSMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Data   any    `json:"data"`
}

// InboundMessage keeps Data raw so the session can decode it per type.
type InboundMessage struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

// Payload structs
type ConnectedPayload struct {
	ConnectionID    string  `json:"connectionId"`
	MaxMembers      int     `json:"maxMembers"`
	DurationOptions []int64 `json:"durationOptions"`
}

type MemberPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	JoinedAt int64  `json:"joinedAt"`
}

type RoomUsersPayload struct {
	Members    []MemberPayload `json:"members"`
	ExpiresAt  int64           `json:"expiresAt"`
	CreatedAt  int64           `json:"createdAt"`
	MaxMembers int             `json:"maxMembers"`
}

type MessagePayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Message  string `json:"message"`
	SenderID string `json:"senderId"`
	Time     int64  `json:"time"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

// NewConnected tells a fresh connection who it is. Duration options are in hours.
func NewConnected(connectionID string, maxMembers int, options []time.Duration) *WSMessage {
	hours := make([]int64, len(options))
	for i, d := range options {
		hours[i] = int64(d / time.Hour)
	}

	return &WSMessage{
		Type: Connected,
		Data: ConnectedPayload{
			ConnectionID:    connectionID,
			MaxMembers:      maxMembers,
			DurationOptions: hours,
		},
	}
}

func NewRoomUsers(room domain.Room) *WSMessage {
	members := make([]MemberPayload, len(room.Members))
	for i, m := range room.Members {
		members[i] = MemberPayload{
			ID:       m.ConnectionID,
			Username: m.DisplayName,
			IsAdmin:  i == 0,
			JoinedAt: m.JoinedAt.UnixMilli(),
		}
	}

	return &WSMessage{
		Type:   RoomUsers,
		RoomID: room.ID,
		Data: RoomUsersPayload{
			Members:    members,
			ExpiresAt:  room.ExpiresAt.UnixMilli(),
			CreatedAt:  room.CreatedAt.UnixMilli(),
			MaxMembers: room.MaxMembers,
		},
	}
}

func NewReceiveMessage(msg domain.Message) *WSMessage {
	return &WSMessage{
		Type:   ReceiveMessage,
		RoomID: msg.RoomID,
		Data: MessagePayload{
			ID:       msg.ID,
			Username: msg.SenderName,
			Message:  msg.Text,
			SenderID: msg.SenderConnectionID,
			Time:     msg.SentAt.UnixMilli(),
		},
	}
}

func NewRoomFull(roomID string, maxMembers int) *WSMessage {
	return &WSMessage{
		Type:   RoomFull,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    "ROOM_FULL",
			Message: fmt.Sprintf("room is full (%d members max)", maxMembers),
			Retry:   true,
		},
	}
}

func NewRoomExpired(roomID string) *WSMessage {
	return &WSMessage{
		Type:   RoomExpired,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    "ROOM_EXPIRED",
			Message: "room has expired",
		},
	}
}

func NewAlreadyInRoom(roomID, currentRoomID string) *WSMessage {
	return &WSMessage{
		Type:   AlreadyInRoom,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    "ALREADY_IN_ROOM",
			Message: "already in room " + currentRoomID,
		},
	}
}

func NewRateLimited(roomID string) *WSMessage {
	return &WSMessage{
		Type:   RateLimited,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    "RATE_LIMITED",
			Message: "too many messages, slow down",
			Retry:   true,
		},
	}
}

func NewError(roomID, message string) *WSMessage {
	return &WSMessage{
		Type:   ErrorEvent,
		RoomID: roomID,
		Data: ErrorPayload{
			Message: message,
		},
	}
}
