package rooms

import "time"

type memberResponse struct {
	ID       string    `json:"id" example:"3f6c1c52-3b1e-4a52-9d55-0b1f3c2b8a11"`
	Username string    `json:"username" example:"Kate"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// roomResponse describes a live room. Rooms past their deadline are still
// returned with expired set until their last member leaves.
type roomResponse struct {
	ID         string           `json:"id" example:"7d1e0c1a"`
	Members    []memberResponse `json:"members"`
	CreatedAt  time.Time        `json:"createdAt"`
	ExpiresAt  time.Time        `json:"expiresAt"`
	Expired    bool             `json:"expired"`
	MaxMembers int              `json:"maxMembers" example:"10"`
}

type configResponse struct {
	MaxMembers       int     `json:"maxMembers" example:"10"`
	DurationOptions  []int64 `json:"durationOptions" example:"1,2,3"` // Offered room lifetimes in hours
	DefaultDuration  int64   `json:"defaultDuration" example:"1"`     // Hours
	MaxMessageLength int     `json:"maxMessageLength" example:"2000"`
}

type auditLogResponse struct {
	ID        string         `json:"id"`
	EventType string         `json:"eventType" example:"member_joined"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
