package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultMaxMessageLength mirrors the input limit of the web client.
const DefaultMaxMessageLength = 2000

// Message exists only for the duration of a fan-out; it is never stored.
type Message struct {
	ID                 string    `json:"id"`
	RoomID             string    `json:"roomId"`
	SenderConnectionID string    `json:"senderId"`
	SenderName         string    `json:"username"`
	Text               string    `json:"message"`
	SentAt             time.Time `json:"time"`
}

// NewMessage validates text and stamps the message with sentAt.
// A maxLength of zero disables the length check.
func NewMessage(roomID, senderConnectionID, senderName, text string, maxLength int, sentAt time.Time) (*Message, error) {
	if roomID == "" || senderConnectionID == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		return nil, ErrMessageTooLong
	}

	return &Message{
		ID:                 uuid.NewString(),
		RoomID:             roomID,
		SenderConnectionID: senderConnectionID,
		SenderName:         senderName,
		Text:               text,
		SentAt:             sentAt,
	}, nil
}
