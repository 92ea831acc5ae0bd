package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/expiry"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type State int

const (
	Connected State = iota
	InRoom
	Closed
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case InRoom:
		return "in_room"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Sender delivers caller-only notices.
type Sender interface {
	SendTo(connectionID string, msg *ws.WSMessage) bool
}

type ConnectionObserver interface {
	ConnectionOpened()
	ConnectionClosed()
}

type Config struct {
	Registry   domain.RoomRegistry
	Policy     *expiry.Policy
	Sender     Sender
	MaxMembers int

	// Optional
	Limiter     ratelimiter.Limiter
	Logger      logging.Logger
	Tracer      trace.Tracer
	Connections ConnectionObserver
}

// Channel is the server side of one websocket connection. The read pump
// drives it through the ws.Handler methods.
type Channel struct {
	connectionID string
	cfg          Config

	mu          sync.Mutex
	opened      bool
	state       State
	roomID      string
	displayName string
}

var _ ws.Handler = (*Channel)(nil)

func New(connectionID string, cfg Config) *Channel {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("session")
	}
	if cfg.MaxMembers <= 0 {
		cfg.MaxMembers = domain.DefaultMaxMembers
	}

	return &Channel{
		connectionID: connectionID,
		cfg:          cfg,
		state:        Connected,
	}
}

func (c *Channel) ConnectionID() string {
	return c.connectionID
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RoomID is empty unless the channel is in a room.
func (c *Channel) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Channel) Open(ctx context.Context) {
	c.mu.Lock()
	if c.opened || c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.opened = true
	c.mu.Unlock()

	if c.cfg.Connections != nil {
		c.cfg.Connections.ConnectionOpened()
	}

	c.cfg.Sender.SendTo(c.connectionID, ws.NewConnected(c.connectionID, c.cfg.MaxMembers, c.cfg.Policy.Options()))
}

func (c *Channel) HandleMessage(ctx context.Context, msg ws.InboundMessage) {
	switch msg.Type {
	case ws.JoinRoom:
		var p joinRoomPayload
		if !c.decode(msg, &p) {
			return
		}
		if p.RoomID == "" {
			p.RoomID = msg.RoomID
		}
		if err := validate.Struct(p); err != nil {
			c.ignore(msg.Type, err)
			return
		}
		c.Join(ctx, p.RoomID, p.Username, time.Duration(p.DurationHours)*time.Hour)

	case ws.SendMessage:
		var p sendMessagePayload
		if !c.decode(msg, &p) {
			return
		}
		if p.RoomID == "" {
			p.RoomID = msg.RoomID
		}
		if err := validate.Struct(p); err != nil {
			c.ignore(msg.Type, err)
			return
		}
		c.Send(ctx, p.RoomID, p.Message)

	default:
		c.ignore(msg.Type, errors.New("unknown event type"))
	}
}

func (c *Channel) decode(msg ws.InboundMessage, v any) bool {
	if len(msg.Data) == 0 {
		// Some clients put everything in the envelope.
		return true
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.ignore(msg.Type, err)
		return false
	}
	return true
}

func (c *Channel) ignore(eventType string, err error) {
	c.cfg.Logger.Debug(logging.Websocket, logging.Read, "ignoring inbound event", map[logging.ExtraKey]any{
		logging.ConnectionID: c.connectionID,
		logging.EventType:    eventType,
		logging.ErrorMessage: err.Error(),
	})
}

// Join asks the registry to admit this connection. Failures are reported to
// the caller only; the channel stays where it was.
func (c *Channel) Join(ctx context.Context, roomID, displayName string, requested time.Duration) {
	ctx, span := c.cfg.Tracer.Start(ctx, "session.join", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("connection.id", c.connectionID),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return
	}

	room, err := c.cfg.Registry.Join(ctx, domain.JoinRequest{
		RoomID:       roomID,
		DisplayName:  displayName,
		ConnectionID: c.connectionID,
		TTL:          c.cfg.Policy.TTL(requested),
		Admit:        c.cfg.Policy.AdmitJoin,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.rejectJoin(roomID, err)
		return
	}

	c.state = InRoom
	c.roomID = room.ID
	c.displayName = strings.TrimSpace(displayName)
	span.SetAttributes(attribute.Int("room.members", len(room.Members)))

	c.cfg.Logger.Info(logging.Room, logging.Join, "member joined", map[logging.ExtraKey]any{
		logging.RoomID:       room.ID,
		logging.ConnectionID: c.connectionID,
		logging.MemberCount:  len(room.Members),
	})
}

func (c *Channel) rejectJoin(roomID string, err error) {
	var notice *ws.WSMessage
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		notice = ws.NewRoomFull(roomID, c.cfg.MaxMembers)
	case errors.Is(err, domain.ErrRoomExpired):
		notice = ws.NewRoomExpired(roomID)
	case errors.Is(err, domain.ErrAlreadyInRoom):
		notice = ws.NewAlreadyInRoom(roomID, c.roomID)
	default:
		c.ignore(ws.JoinRoom, err)
		return
	}

	c.cfg.Logger.Info(logging.Room, logging.Join, "join rejected", map[logging.ExtraKey]any{
		logging.RoomID:       roomID,
		logging.ConnectionID: c.connectionID,
		logging.ErrorMessage: err.Error(),
	})
	c.cfg.Sender.SendTo(c.connectionID, notice)
}

// Send posts text to the joined room under this channel's identity.
func (c *Channel) Send(ctx context.Context, roomID, text string) {
	ctx, span := c.cfg.Tracer.Start(ctx, "session.send", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("connection.id", c.connectionID),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != InRoom || roomID != c.roomID {
		return
	}

	if c.cfg.Limiter != nil && !c.cfg.Limiter.Allow(c.connectionID) {
		c.cfg.Logger.Warn(logging.General, logging.RateLimiting, "message rate limit exceeded", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ConnectionID: c.connectionID,
		})
		c.cfg.Sender.SendTo(c.connectionID, ws.NewRateLimited(roomID))
		return
	}

	room, err := c.cfg.Registry.Get(ctx, roomID)
	if err != nil {
		c.ignore(ws.SendMessage, err)
		return
	}
	if err := c.cfg.Policy.AdmitSend(room); err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.cfg.Sender.SendTo(c.connectionID, ws.NewRoomExpired(roomID))
		return
	}

	if _, err := c.cfg.Registry.Send(ctx, roomID, c.connectionID, c.displayName, text); err != nil {
		if errors.Is(err, domain.ErrMessageTooLong) {
			c.cfg.Sender.SendTo(c.connectionID, ws.NewError(roomID, err.Error()))
			return
		}
		c.ignore(ws.SendMessage, err)
	}
}

// Close leaves the room, if any, and makes the channel terminal. Safe to call
// more than once.
func (c *Channel) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return
	}

	if c.state == InRoom {
		c.cfg.Registry.Leave(ctx, c.connectionID)
		c.cfg.Logger.Info(logging.Room, logging.Leave, "member left", map[logging.ExtraKey]any{
			logging.RoomID:       c.roomID,
			logging.ConnectionID: c.connectionID,
		})
	}

	if c.cfg.Limiter != nil {
		c.cfg.Limiter.Forget(c.connectionID)
	}
	if c.opened && c.cfg.Connections != nil {
		c.cfg.Connections.ConnectionClosed()
	}

	c.state = Closed
	c.roomID = ""
}
