package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
)

// Handler consumes what a client reads off its socket. Open runs once the
// client is registered, Close once the read pump stops and before the client
// leaves the hub.
type Handler interface {
	Open(ctx context.Context)
	HandleMessage(ctx context.Context, msg InboundMessage)
	Close(ctx context.Context)
}

type ClientConfig struct {
	SendQueueSize  int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SendQueueSize:  64,
		MaxMessageSize: 16 * 1024,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
	}
}

type Client struct {
	ID string

	conn   *connWrapper
	cfg    ClientConfig
	logger logging.Logger

	mu     sync.Mutex
	send   chan *WSMessage
	closed bool
}

func NewClient(conn *websocket.Conn, id string, cfg ClientConfig, logger logging.Logger) *Client {
	defaults := DefaultClientConfig()
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaults.SendQueueSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}

	var wrapped *connWrapper
	if conn != nil {
		wrapped = newConnWrapper(conn)
	}

	return &Client{
		ID:     id,
		conn:   wrapped,
		cfg:    cfg,
		logger: logger,
		send:   make(chan *WSMessage, cfg.SendQueueSize), // buffered to avoid dead-locks on slow clients
	}
}

// Enqueue never blocks. It reports false when the queue is full or the
// client is already closed; the message is dropped for this client only.
func (c *Client) Enqueue(msg *WSMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Serve registers the client, runs both pumps and blocks until the
// connection is gone or ctx is cancelled.
func (c *Client) Serve(ctx context.Context, hub *Hub, handler Handler) {
	hub.Register(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.Close()
	})
	defer stop()

	handler.Open(ctx)
	c.readPump(ctx, handler)

	// Leave the room before the hub forgets the client, so the remaining
	// members are told while this client can no longer receive.
	handler.Close(context.WithoutCancel(ctx))
	hub.Unregister(c)

	<-writerDone
}

func (c *Client) readPump(ctx context.Context, handler Handler) {
	if c.cfg.MaxMessageSize > 0 {
		c.conn.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn(logging.Websocket, logging.Read, "ws read error", map[logging.ExtraKey]any{
					logging.ConnectionID: c.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Debug(logging.Websocket, logging.Read, "ignoring malformed frame", map[logging.ExtraKey]any{
				logging.ConnectionID: c.ID,
				logging.ErrorMessage: err.Error(),
			})
			continue
		}

		handler.HandleMessage(ctx, msg)
	}
}

func (c *Client) writePump() {
	pingPeriod := (c.cfg.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.cfg.WriteWait))
				return
			}
			if err := c.conn.WriteJSON(msg, time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Warn(logging.Websocket, logging.Write, "ws write error", map[logging.ExtraKey]any{
					logging.ConnectionID: c.ID,
					logging.ErrorMessage: err.Error(),
				})
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}
