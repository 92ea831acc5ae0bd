package expiry

import (
	"fmt"
	"slices"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
)

var DefaultDurationOptions = []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour}

// Policy gates joins and sends on a room's fixed deadline. The registry never
// consults it; the session layer does, once per attempt.
type Policy struct {
	defaultTTL time.Duration
	options    []time.Duration
	now        func() time.Time
}

func NewPolicy(defaultTTL time.Duration, options []time.Duration, now func() time.Time) (*Policy, error) {
	if len(options) == 0 {
		options = DefaultDurationOptions
	}
	if defaultTTL <= 0 {
		defaultTTL = options[0]
	}
	if !slices.Contains(options, defaultTTL) {
		return nil, fmt.Errorf("default duration %s is not one of %v: %w", defaultTTL, options, domain.ErrInvalidInput)
	}
	if now == nil {
		now = time.Now
	}

	sorted := slices.Clone(options)
	slices.Sort(sorted)

	return &Policy{
		defaultTTL: defaultTTL,
		options:    sorted,
		now:        now,
	}, nil
}

// TTL picks the lifetime for a room about to be created. Anything that is not
// one of the offered options falls back to the default.
func (p *Policy) TTL(requested time.Duration) time.Duration {
	if slices.Contains(p.options, requested) {
		return requested
	}
	return p.defaultTTL
}

func (p *Policy) DefaultTTL() time.Duration {
	return p.defaultTTL
}

func (p *Policy) Options() []time.Duration {
	return slices.Clone(p.options)
}

// Expired is true strictly after the deadline.
func (p *Policy) Expired(room domain.Room) bool {
	return p.now().After(room.ExpiresAt)
}

func (p *Policy) Remaining(room domain.Room) time.Duration {
	left := room.ExpiresAt.Sub(p.now())
	if left < 0 {
		return 0
	}
	return left
}

func (p *Policy) AdmitJoin(room domain.Room) error {
	if p.Expired(room) {
		return fmt.Errorf("join %s: %w", room.ID, domain.ErrRoomExpired)
	}
	return nil
}

func (p *Policy) AdmitSend(room domain.Room) error {
	if p.Expired(room) {
		return fmt.Errorf("send to %s: %w", room.ID, domain.ErrRoomExpired)
	}
	return nil
}
