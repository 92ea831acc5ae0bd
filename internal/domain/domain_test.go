package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMember(t *testing.T) {
	now := time.Now()

	m, err := NewMember("conn-1", "  Alice ", now)
	require.NoError(t, err)
	assert.Equal(t, "Alice", m.DisplayName)
	assert.Equal(t, now, m.JoinedAt)

	_, err = NewMember("", "Alice", now)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewMember("conn-1", "   ", now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewMessage(t *testing.T) {
	now := time.Now()

	msg, err := NewMessage("r", "c", "Alice", "hi there", 10, now)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hi there", msg.Text)
	assert.Equal(t, now, msg.SentAt)

	other, err := NewMessage("r", "c", "Alice", "hi there", 10, now)
	require.NoError(t, err)
	assert.NotEqual(t, msg.ID, other.ID)

	_, err = NewMessage("r", "c", "Alice", " \n\t ", 10, now)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = NewMessage("r", "c", "Alice", strings.Repeat("é", 11), 10, now)
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = NewMessage("r", "c", "Alice", strings.Repeat("é", 10), 10, now)
	assert.NoError(t, err, "length counts runes, not bytes")

	_, err = NewMessage("r", "c", "Alice", strings.Repeat("x", 5000), 0, now)
	assert.NoError(t, err, "zero disables the limit")

	_, err = NewMessage("", "c", "Alice", "hi", 10, now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRoomHelpers(t *testing.T) {
	room := Room{
		ID: "r",
		Members: []Member{
			{ConnectionID: "a", DisplayName: "Alice"},
			{ConnectionID: "b", DisplayName: "Bob"},
		},
		MaxMembers: 2,
	}

	assert.True(t, room.IsFull())
	assert.True(t, room.IsAdmin("a"))
	assert.False(t, room.IsAdmin("b"))
	assert.Equal(t, []string{"a", "b"}, room.ConnectionIDs())

	m, ok := room.FindMember("b")
	require.True(t, ok)
	assert.Equal(t, "Bob", m.DisplayName)

	_, ok = room.FindMember("z")
	assert.False(t, ok)

	assert.False(t, Room{}.IsAdmin("a"))
}

type countingObserver struct {
	NopRoomObserver
	created, changed int
}

func (c *countingObserver) RoomCreated(Room)    { c.created++ }
func (c *countingObserver) MembersChanged(Room) { c.changed++ }

func TestMultiObserverFansOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	multi := MultiObserver{a, b}

	multi.RoomCreated(Room{})
	multi.MembersChanged(Room{})
	multi.MembersChanged(Room{})
	multi.RoomDeleted(Room{})

	for _, o := range []*countingObserver{a, b} {
		assert.Equal(t, 1, o.created)
		assert.Equal(t, 2, o.changed)
	}
}

func TestAuditLogConstructors(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	created := NewRoomCreatedLog("r", at, 2*time.Hour, 10)
	assert.Equal(t, EventRoomCreated, created.EventType)
	assert.Equal(t, at, created.Timestamp)
	assert.Equal(t, 7200.0, created.Metadata["expiry_seconds"])
	assert.NotEmpty(t, created.ID)

	left := NewMemberLeftLog("r", at, 3)
	assert.Equal(t, EventMemberLeft, left.EventType)
	assert.Equal(t, 3, left.Metadata["member_count"])

	full := NewRoomFullRejectionLog("r", at, 10)
	assert.Equal(t, EventRoomFull, full.EventType)
}
