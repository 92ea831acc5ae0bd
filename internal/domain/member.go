package domain

import (
	"strings"
	"time"
)

// Member is one connection's participation record within a room.
type Member struct {
	ConnectionID string    `json:"id"`
	DisplayName  string    `json:"username"`
	JoinedAt     time.Time `json:"joinedAt"`
}

func NewMember(connectionID, displayName string, joinedAt time.Time) (*Member, error) {
	if connectionID == "" || strings.TrimSpace(displayName) == "" {
		return nil, ErrInvalidInput
	}

	return &Member{
		ConnectionID: connectionID,
		DisplayName:  strings.TrimSpace(displayName),
		JoinedAt:     joinedAt,
	}, nil
}
