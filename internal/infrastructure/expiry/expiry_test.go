package expiry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, p.DefaultTTL())
	assert.Equal(t, DefaultDurationOptions, p.Options())

	p, err = NewPolicy(2*time.Hour, []time.Duration{3 * time.Hour, 2 * time.Hour}, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Hour, 3 * time.Hour}, p.Options())

	_, err = NewPolicy(5*time.Hour, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPolicyTTL(t *testing.T) {
	p, err := NewPolicy(time.Hour, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Hour, p.TTL(3*time.Hour))
	assert.Equal(t, time.Hour, p.TTL(0))
	assert.Equal(t, time.Hour, p.TTL(4*time.Hour))
	assert.Equal(t, time.Hour, p.TTL(-time.Hour))
}

func TestPolicyBoundary(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	room := domain.Room{ID: "r", CreatedAt: created, ExpiresAt: created.Add(time.Hour)}

	at := func(d time.Duration) *Policy {
		p, err := NewPolicy(time.Hour, nil, fixedClock(created.Add(d)))
		require.NoError(t, err)
		return p
	}

	assert.NoError(t, at(59*time.Minute).AdmitJoin(room))
	assert.NoError(t, at(time.Hour).AdmitSend(room), "the deadline itself is still open")
	assert.ErrorIs(t, at(time.Hour+time.Millisecond).AdmitSend(room), domain.ErrRoomExpired)
	assert.ErrorIs(t, at(time.Hour+time.Millisecond).AdmitJoin(room), domain.ErrRoomExpired)

	assert.Equal(t, 30*time.Minute, at(30*time.Minute).Remaining(room))
	assert.Equal(t, time.Duration(0), at(2*time.Hour).Remaining(room))
}

func TestPropertyExpiryIsMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		created := time.Unix(rapid.Int64Range(0, 1<<32).Draw(t, "created"), 0)
		ttl := time.Duration(rapid.IntRange(1, 3).Draw(t, "hours")) * time.Hour
		room := domain.Room{ID: "r", CreatedAt: created, ExpiresAt: created.Add(ttl)}

		first := time.Duration(rapid.Int64Range(0, int64(4*time.Hour)).Draw(t, "first"))
		later := first + time.Duration(rapid.Int64Range(0, int64(4*time.Hour)).Draw(t, "later"))

		p1, _ := NewPolicy(time.Hour, nil, fixedClock(created.Add(first)))
		p2, _ := NewPolicy(time.Hour, nil, fixedClock(created.Add(later)))

		if p1.Expired(room) && !p2.Expired(room) {
			t.Fatalf("expired at %s but open again at %s", first, later)
		}
		if p1.Expired(room) != (first > ttl) {
			t.Fatalf("expired=%v at %s with ttl %s", p1.Expired(room), first, ttl)
		}
	})
}

type recordingNotifier struct {
	mu      sync.Mutex
	expired []domain.Room
}

func (r *recordingNotifier) RoomExpired(room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, room)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expired)
}

func TestWatcherNotifiesMembersAtDeadline(t *testing.T) {
	notifier := &recordingNotifier{}
	watcher := NewWatcher(nil, notifier, logging.NewNop(), nil)
	registry := repository.NewRoomRegistry(repository.WithObserver(watcher))
	watcher.SetRooms(registry)
	defer watcher.Stop()

	ctx := context.Background()
	_, err := registry.Join(ctx, domain.JoinRequest{RoomID: "r", DisplayName: "Alice", ConnectionID: "a", TTL: 20 * time.Millisecond})
	require.NoError(t, err)
	_, err = registry.Join(ctx, domain.JoinRequest{RoomID: "r", DisplayName: "Bob", ConnectionID: "b"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, notifier.expired[0].ConnectionIDs())
	assert.Equal(t, 0, watcher.Pending())

	// The watcher never deletes: the room stays until its members leave.
	_, err = registry.Get(ctx, "r")
	assert.NoError(t, err)
}

func TestWatcherDisarmsDeletedRooms(t *testing.T) {
	notifier := &recordingNotifier{}
	watcher := NewWatcher(nil, notifier, logging.NewNop(), nil)
	registry := repository.NewRoomRegistry(repository.WithObserver(watcher))
	watcher.SetRooms(registry)
	defer watcher.Stop()

	ctx := context.Background()
	_, err := registry.Join(ctx, domain.JoinRequest{RoomID: "r", DisplayName: "Alice", ConnectionID: "a", TTL: 30 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, 1, watcher.Pending())

	registry.Leave(ctx, "a")
	assert.Equal(t, 0, watcher.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, notifier.count())
}

func TestWatcherIgnoresReusedRoomID(t *testing.T) {
	notifier := &recordingNotifier{}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	watcher := NewWatcher(nil, notifier, logging.NewNop(), fixedClock(now))
	defer watcher.Stop()

	old := domain.Room{ID: "r", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	fresh := domain.Room{ID: "r", CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(2 * time.Hour)}

	watcher.RoomCreated(old)
	// A stale delete for an older incarnation must not disarm the current one.
	watcher.RoomCreated(fresh)
	watcher.RoomDeleted(old)
	assert.Equal(t, 1, watcher.Pending())

	watcher.RoomDeleted(fresh)
	assert.Equal(t, 0, watcher.Pending())
}

func TestNotifiersFanOutInOrder(t *testing.T) {
	first, second := &recordingNotifier{}, &recordingNotifier{}
	room := domain.Room{ID: "r"}

	Notifiers{first, second}.RoomExpired(room)

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}
