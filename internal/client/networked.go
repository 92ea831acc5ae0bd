package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/validate"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
)

const (
	defaultWSPath    = "/api/rooms/ws"
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

// NetworkedRoomClient speaks the websocket protocol to a running server.
type NetworkedRoomClient struct {
	conn         *websocket.Conn
	connectionID string
	logger       logging.Logger
	events       *eventQueue
	done         chan struct{}

	writeMu sync.Mutex

	mu          sync.Mutex
	roomID      string
	closed      bool
	pendingRoom string
	pending     chan error
}

var _ RoomClient = (*NetworkedRoomClient)(nil)

// Dial connects to serverURL and waits for the server's connected notice.
// serverURL may be an http(s) base URL or a full ws(s) URL.
func Dial(ctx context.Context, serverURL string, logger logging.Logger) (*NetworkedRoomClient, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	wsURL, err := websocketURL(serverURL)
	if err != nil {
		return nil, err
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var first ws.InboundMessage
	if err := conn.ReadJSON(&first); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("waiting for %s: %w", ws.Connected, err)
	}
	ev, err := eventFromWire(first)
	if err != nil || ev.Connected == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("expected %s, got %q", ws.Connected, first.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &NetworkedRoomClient{
		conn:         conn,
		connectionID: ev.Connected.ConnectionID,
		logger:       logger,
		events:       newEventQueue(defaultEventBuffer),
		done:         make(chan struct{}),
	}
	c.events.push(ev)

	go c.readLoop()

	return c, nil
}

func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme", serverURL)
	}

	if strings.TrimSuffix(u.Path, "/") == "" {
		u.Path = defaultWSPath
	}

	return u.String(), nil
}

func (c *NetworkedRoomClient) ConnectionID() string {
	return c.connectionID
}

func (c *NetworkedRoomClient) Events() <-chan Event {
	return c.events.ch
}

func (c *NetworkedRoomClient) Join(ctx context.Context, roomID, username string, duration time.Duration) error {
	if err := validate.Join(roomID, username); err != nil {
		return err
	}

	result := make(chan error, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.roomID != "" {
		c.mu.Unlock()
		return fmt.Errorf("connection %s is in room %s: %w", c.connectionID, c.roomID, domain.ErrAlreadyInRoom)
	}
	c.pendingRoom = roomID
	c.pending = result
	c.mu.Unlock()

	err := c.write(ctx, ws.JoinRoom, roomID, map[string]any{
		"roomId":        roomID,
		"username":      username,
		"durationHours": int(duration / time.Hour),
	})
	if err != nil {
		c.clearPending(result)
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		c.clearPending(result)
		return ctx.Err()
	}
}

func (c *NetworkedRoomClient) clearPending(result chan error) {
	c.mu.Lock()
	if c.pending == result {
		c.pending = nil
		c.pendingRoom = ""
	}
	c.mu.Unlock()
}

func (c *NetworkedRoomClient) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	roomID, closed := c.roomID, c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if roomID == "" {
		return ErrNotJoined
	}

	return c.write(ctx, ws.SendMessage, roomID, map[string]any{
		"roomId":  roomID,
		"message": text,
	})
}

func (c *NetworkedRoomClient) write(ctx context.Context, eventType, roomID string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(ws.InboundMessage{Type: eventType, RoomID: roomID, Data: raw})
}

// Close says goodbye to the server and waits for the read loop to finish.
// The events channel is closed afterwards.
func (c *NetworkedRoomClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

func (c *NetworkedRoomClient) readLoop() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.roomID = ""
		if c.pending != nil {
			c.pending <- ErrClosed
			c.pending = nil
		}
		c.mu.Unlock()

		c.events.close()
		close(c.done)
	}()

	for {
		var msg ws.InboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Debug(logging.Websocket, logging.Read, "connection lost", map[logging.ExtraKey]any{
					logging.ConnectionID: c.connectionID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		ev, err := eventFromWire(msg)
		if err != nil {
			c.logger.Debug(logging.Websocket, logging.Read, "ignoring malformed event", map[logging.ExtraKey]any{
				logging.ConnectionID: c.connectionID,
				logging.ErrorMessage: err.Error(),
			})
			continue
		}

		c.track(ev)
		c.events.push(ev)
	}
}

// track settles a pending join and follows which room this client is in.
// A room_users listing this connection settles the join whatever room id the
// server echoed; the server's id wins.
func (c *NetworkedRoomClient) track(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	joined := ev.Type == ws.RoomUsers && ev.HasMember(c.connectionID)
	if joined {
		c.roomID = ev.RoomID
	}

	if c.pending == nil {
		return
	}

	var err error
	switch {
	case joined:
	case ev.RoomID == c.pendingRoom && rejection(ev.Type) != nil:
		err = rejection(ev.Type)
	default:
		return
	}

	c.pending <- err
	c.pending = nil
	c.pendingRoom = ""
}
