package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/expiry"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/repository"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
	"github.com/hilthontt/zeroroom/internal/presentation/handler/rooms"
	"github.com/hilthontt/zeroroom/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, c RoomClient, eventType string) Event {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			require.True(t, ok, "events closed while waiting for %s", eventType)
			if ev.Type == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", eventType)
		}
	}
}

func newServer(t *testing.T, maxMembers int) string {
	t.Helper()

	logger := logging.NewNop()
	hub := ws.NewHub(logger)
	policy, err := expiry.NewPolicy(time.Hour, nil, nil)
	require.NoError(t, err)

	registry := repository.NewRoomRegistry(
		repository.WithMaxMembers(maxMembers),
		repository.WithObserver(hub),
	)

	handler := rooms.NewHandler(
		session.Config{Registry: registry, Policy: policy, MaxMembers: maxMembers},
		hub,
		ws.NewUpgrader(1024, 1024, nil),
		ws.DefaultClientConfig(),
		domain.DefaultMaxMessageLength,
		nil,
		logger,
	)

	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	t.Cleanup(srv.Close)
	return srv.URL
}

func dial(t *testing.T, url string) *NetworkedRoomClient {
	t.Helper()

	c, err := Dial(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestWebsocketURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "http://localhost:5000", want: "ws://localhost:5000/api/rooms/ws"},
		{in: "https://chat.example/", want: "wss://chat.example/api/rooms/ws"},
		{in: "ws://localhost:5000/socket", want: "ws://localhost:5000/socket"},
		{in: "wss://chat.example/api/rooms/ws", want: "wss://chat.example/api/rooms/ws"},
	}
	for _, tc := range cases {
		got, err := websocketURL(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := websocketURL("ftp://example")
	assert.Error(t, err)
}

func TestNetworkedClientsChat(t *testing.T) {
	url := newServer(t, 10)
	ctx := context.Background()

	alice, bob := dial(t, url), dial(t, url)
	assert.NotEqual(t, alice.ConnectionID(), bob.ConnectionID())

	connected := nextEvent(t, alice, ws.Connected)
	assert.Equal(t, alice.ConnectionID(), connected.Connected.ConnectionID)

	assert.ErrorIs(t, alice.Send(ctx, "too early"), ErrNotJoined)

	require.NoError(t, alice.Join(ctx, "lobby", "Alice", 2*time.Hour))
	require.NoError(t, bob.Join(ctx, "lobby", "Bob", 0))

	users := nextEvent(t, alice, ws.RoomUsers)
	for len(users.Users.Members) < 2 {
		users = nextEvent(t, alice, ws.RoomUsers)
	}
	assert.True(t, users.HasMember(bob.ConnectionID()))
	assert.Equal(t, "Alice", users.Users.Members[0].Username)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), users.ExpiresAt(), time.Minute)

	require.NoError(t, bob.Send(ctx, "hi alice"))
	msg := nextEvent(t, alice, ws.ReceiveMessage)
	assert.Equal(t, "hi alice", msg.Message.Message)
	assert.Equal(t, "Bob", msg.Message.Username)
	assert.Equal(t, bob.ConnectionID(), msg.Message.SenderID)

	assert.ErrorIs(t, bob.Join(ctx, "other", "Bob", 0), domain.ErrAlreadyInRoom)

	require.NoError(t, bob.Close())
	_, open := <-drain(bob)
	assert.False(t, open)

	users = nextEvent(t, alice, ws.RoomUsers)
	assert.Len(t, users.Users.Members, 1)
}

func TestNetworkedJoinRejected(t *testing.T) {
	url := newServer(t, 1)
	ctx := context.Background()

	alice, bob := dial(t, url), dial(t, url)
	require.NoError(t, alice.Join(ctx, "tiny", "Alice", 0))

	err := bob.Join(ctx, "tiny", "Bob", 0)
	assert.ErrorIs(t, err, domain.ErrRoomFull)
	assert.ErrorIs(t, bob.Send(ctx, "nope"), ErrNotJoined)

	notice := nextEvent(t, bob, ws.RoomFull)
	assert.Equal(t, "ROOM_FULL", notice.Notice.Code)
}

func TestNetworkedJoinValidatesLocally(t *testing.T) {
	url := newServer(t, 10)
	c := dial(t, url)

	assert.ErrorIs(t, c.Join(context.Background(), "lobby", "   ", 0), domain.ErrInvalidInput)
	assert.ErrorIs(t, c.Join(context.Background(), "", "Alice", 0), domain.ErrInvalidInput)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.ErrorIs(t, c.Join(ctx, "room\xff", "Alice", 0), domain.ErrInvalidInput)
	require.NoError(t, ctx.Err(), "rejected before anything reached the server")

	require.NoError(t, c.Join(ctx, "lobby", "Alice", 0))
}

func TestTrackSettlesJoinOnServerRoomID(t *testing.T) {
	result := make(chan error, 1)
	c := &NetworkedRoomClient{connectionID: "me", pendingRoom: "caf\xe9", pending: result}

	c.track(Event{
		Type:   ws.RoomUsers,
		RoomID: "caf\ufffd",
		Users:  &ws.RoomUsersPayload{Members: []ws.MemberPayload{{ID: "other"}, {ID: "me"}}},
	})

	select {
	case err := <-result:
		assert.NoError(t, err)
	default:
		t.Fatal("join left pending")
	}
	assert.Equal(t, "caf\ufffd", c.roomID)
	assert.Nil(t, c.pending)

	rejected := make(chan error, 1)
	c = &NetworkedRoomClient{connectionID: "me", pendingRoom: "tiny", pending: rejected}
	c.track(Event{Type: ws.RoomFull, RoomID: "elsewhere"})
	assert.NotNil(t, c.pending, "a notice for another room leaves the join pending")
	c.track(Event{Type: ws.RoomFull, RoomID: "tiny"})
	assert.ErrorIs(t, <-rejected, domain.ErrRoomFull)
	assert.Empty(t, c.roomID)
}

// drain empties the events channel and returns it once closed.
func drain(c RoomClient) <-chan Event {
	ch := c.Events()
	for range ch {
	}
	return ch
}

func TestLocalClient(t *testing.T) {
	c, err := NewLocal(LocalOptions{})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	connected := nextEvent(t, c, ws.Connected)
	assert.Equal(t, c.ConnectionID(), connected.Connected.ConnectionID)
	assert.Equal(t, []int64{1, 2, 3}, connected.Connected.DurationOptions)

	assert.ErrorIs(t, c.Send(ctx, "hello"), ErrNotJoined)
	assert.ErrorIs(t, c.Join(ctx, "lobby", "", 0), domain.ErrInvalidInput)

	require.NoError(t, c.Join(ctx, "lobby", "Alice", time.Hour))
	users := nextEvent(t, c, ws.RoomUsers)
	require.Len(t, users.Users.Members, 1)
	assert.True(t, users.Users.Members[0].IsAdmin)

	require.NoError(t, c.Send(ctx, "hello"))
	msg := nextEvent(t, c, ws.ReceiveMessage)
	assert.Equal(t, "hello", msg.Message.Message)
	assert.Equal(t, "Alice", msg.Message.Username)

	assert.ErrorIs(t, c.Join(ctx, "elsewhere", "Alice", 0), domain.ErrAlreadyInRoom)
}

func TestLocalClientExpiry(t *testing.T) {
	c, err := NewLocal(LocalOptions{
		DefaultDuration: 30 * time.Millisecond,
		DurationOptions: []time.Duration{30 * time.Millisecond},
	})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Join(ctx, "brief", "Alice", 0))
	expired := nextEvent(t, c, ws.RoomExpired)
	assert.Equal(t, "brief", expired.RoomID)

	require.NoError(t, c.Send(ctx, "anyone?"))
	notice := nextEvent(t, c, ws.RoomExpired)
	assert.Equal(t, "ROOM_EXPIRED", notice.Notice.Code)
}

func TestLocalClientClose(t *testing.T) {
	c, err := NewLocal(LocalOptions{})
	require.NoError(t, err)

	require.NoError(t, c.Join(context.Background(), "lobby", "Alice", 0))
	require.NoError(t, c.Close())

	_, open := <-drain(c)
	assert.False(t, open)
	assert.ErrorIs(t, c.Send(context.Background(), "hello"), ErrClosed)
	assert.ErrorIs(t, c.Join(context.Background(), "lobby", "Alice", 0), ErrClosed)
}
