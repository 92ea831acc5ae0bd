package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/expiry"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/repository"
	"github.com/hilthontt/zeroroom/internal/infrastructure/validate"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
	"github.com/hilthontt/zeroroom/internal/session"
)

type LocalOptions struct {
	MaxMembers       int
	DefaultDuration  time.Duration
	DurationOptions  []time.Duration
	MaxMessageLength int
	Now              func() time.Time
	Logger           logging.Logger
}

// LocalSimulatedRoomClient runs a private registry in this process. It is
// useful offline and in tests: the rules are the server's, there is just
// nobody else in the room.
type LocalSimulatedRoomClient struct {
	domain.NopRoomObserver

	connectionID string
	channel      *session.Channel
	watcher      *expiry.Watcher
	events       *eventQueue

	mu         sync.Mutex
	lastReject string
}

var _ RoomClient = (*LocalSimulatedRoomClient)(nil)

func NewLocal(opts LocalOptions) (*LocalSimulatedRoomClient, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.MaxMembers <= 0 {
		opts.MaxMembers = domain.DefaultMaxMembers
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = domain.DefaultMaxMessageLength
	}

	policy, err := expiry.NewPolicy(opts.DefaultDuration, opts.DurationOptions, opts.Now)
	if err != nil {
		return nil, err
	}

	c := &LocalSimulatedRoomClient{
		connectionID: uuid.NewString(),
		events:       newEventQueue(defaultEventBuffer),
	}

	c.watcher = expiry.NewWatcher(nil, c, opts.Logger, opts.Now)
	registry := repository.NewRoomRegistry(
		repository.WithMaxMembers(opts.MaxMembers),
		repository.WithDefaultTTL(policy.DefaultTTL()),
		repository.WithMaxMessageLength(opts.MaxMessageLength),
		repository.WithClock(opts.Now),
		repository.WithObserver(c, c.watcher),
	)
	c.watcher.SetRooms(registry)

	c.channel = session.New(c.connectionID, session.Config{
		Registry:   registry,
		Policy:     policy,
		Sender:     c,
		MaxMembers: opts.MaxMembers,
		Logger:     opts.Logger,
	})
	c.channel.Open(context.Background())

	return c, nil
}

func (c *LocalSimulatedRoomClient) ConnectionID() string {
	return c.connectionID
}

func (c *LocalSimulatedRoomClient) Events() <-chan Event {
	return c.events.ch
}

func (c *LocalSimulatedRoomClient) Join(ctx context.Context, roomID, username string, duration time.Duration) error {
	if err := validate.Join(roomID, username); err != nil {
		return err
	}
	if c.channel.State() == session.Closed {
		return ErrClosed
	}

	c.mu.Lock()
	c.lastReject = ""
	c.mu.Unlock()

	c.channel.Join(ctx, roomID, username, duration)

	if c.channel.State() == session.InRoom && c.channel.RoomID() == roomID {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := rejection(c.lastReject); err != nil {
		return err
	}
	return domain.ErrInvalidInput
}

func (c *LocalSimulatedRoomClient) Send(ctx context.Context, text string) error {
	switch c.channel.State() {
	case session.Closed:
		return ErrClosed
	case session.Connected:
		return ErrNotJoined
	}

	c.channel.Send(ctx, c.channel.RoomID(), text)
	return nil
}

func (c *LocalSimulatedRoomClient) Close() error {
	c.channel.Close(context.Background())
	c.watcher.Stop()
	c.events.close()
	return nil
}

// SendTo receives the caller-only notices of the session channel.
func (c *LocalSimulatedRoomClient) SendTo(_ string, msg *ws.WSMessage) bool {
	if rejection(msg.Type) != nil {
		c.mu.Lock()
		c.lastReject = msg.Type
		c.mu.Unlock()
	}
	return c.events.push(eventFromMessage(msg))
}

func (c *LocalSimulatedRoomClient) MembersChanged(room domain.Room) {
	c.events.push(eventFromMessage(ws.NewRoomUsers(room)))
}

func (c *LocalSimulatedRoomClient) MessagePosted(_ domain.Room, msg domain.Message) {
	c.events.push(eventFromMessage(ws.NewReceiveMessage(msg)))
}

func (c *LocalSimulatedRoomClient) RoomExpired(room domain.Room) {
	c.events.push(eventFromMessage(ws.NewRoomExpired(room.ID)))
}
