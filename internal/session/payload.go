package session

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type joinRoomPayload struct {
	RoomID        string `json:"roomId" validate:"required,max=256"`
	Username      string `json:"username" validate:"required"`
	DurationHours int    `json:"durationHours"`
}

// sendMessagePayload may carry username and senderId from older clients.
// They are decoded but never trusted.
type sendMessagePayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	Message  string `json:"message" validate:"required"`
	Username string `json:"username"`
	SenderID string `json:"senderId"`
}
