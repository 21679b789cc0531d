package hub

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
)

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second

	// A connection that answers no ping within pingInterval+writeTimeout
	// is torn down; transport closure is otherwise the only disconnect
	// signal.
	pingInterval = 30 * time.Second
)

// Client is one live connection: a user identity plus a delivery channel.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Username string

	conn *websocket.Conn
	hub  *Hub

	// Send is the bounded per-connection delivery queue. The write pump
	// drains it in FIFO order; the hub closes it on unregister.
	Send chan model.Frame

	messageLim *rate.Limiter
	typingLim  *rate.Limiter
}

// NewClient returns a new instance of Client bound to conn.
func NewClient(conn *websocket.Conn, userID uuid.UUID, username string) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Username: username,
		conn:     conn,
		Send:     make(chan model.Frame, sendQueueSize),
	}
}

func (c *Client) SetMessageLimiter(requests int, window time.Duration) {
	c.messageLim = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
}

func (c *Client) SetTypingLimiter(requests int, window time.Duration) {
	c.typingLim = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
}

// ReadPump reads inbound frames from the websocket and forwards them to the
// hub. It owns connection teardown: on any read error the client is
// unregistered, which also covers transport-level disconnects.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister <- c
		c.conn.CloseNow()
	}()

	for {
		msgType, p, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				log.Printf("read error for [%s]: %v", c.Username, err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var frame model.Frame
		if err := json.Unmarshal(p, &frame); err != nil {
			log.Printf("failed to process payload from client: %v", err)
			continue
		}

		select {
		case c.hub.Events <- Inbound{Client: c, Frame: frame}:
		case <-ctx.Done():
			return
		}
	}
}

// WritePump drains the send queue onto the websocket. A write failure means
// this connection is broken: it is unregistered and closed without touching
// anyone else's delivery.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case frame, ok := <-c.Send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}

			p, err := json.Marshal(frame)
			if err != nil {
				slog.ErrorContext(ctx, "failed to encode frame",
					"error", err,
					"frame_type", frame.Type)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.conn.Write(writeCtx, websocket.MessageText, p)
			cancel()
			if err != nil {
				slog.WarnContext(ctx, "dropping broken connection",
					"error", err,
					"user_id", c.UserID.String(),
					"username", c.Username)
				c.hub.Unregister <- c
				c.conn.CloseNow()
				return
			}

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "context cancelled")
			return
		}
	}
}

// Keepalive pings the client until the connection dies. Closing the
// connection unblocks ReadPump, which performs the actual unregister.
func (c *Client) Keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				log.Printf("keepalive failed for [%s]: %v", c.Username, err)
				c.conn.CloseNow()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// allowMessage and allowTyping apply the per-client rate limits. They are
// called from the hub loop only, which is also the only writer into Send;
// keeping both on one goroutine avoids racing the channel close on
// unregister.
func (c *Client) allowMessage() bool {
	return c.messageLim == nil || c.messageLim.Allow()
}

func (c *Client) allowTyping() bool {
	return c.typingLim == nil || c.typingLim.Allow()
}
