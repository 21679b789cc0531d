// Package hub contains the real-time core: the connection registry, the
// broadcast dispatcher and the per-connection session gateway. One run-loop
// goroutine owns all shared state, so register/unregister, store mutations
// and dispatch are serialized without locks.
package hub

import (
	"context"
	"log"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

type sanitizer interface {
	Sanitize(s string) string
	SanitizeBytes(p []byte) []byte
}

// Registration couples a client with a signal channel closed once the
// client has received its history replay and joined the registry.
type Registration struct {
	Client *Client
	Done   chan struct{}
}

// Inbound is one event read off a client connection.
type Inbound struct {
	Client *Client
	Frame  model.Frame
}

// Hub routes every event through a single processing context.
type Hub struct {
	store     store.Store
	registry  *Registry
	sanitizer sanitizer

	Register   chan Registration
	Unregister chan *Client
	Events     chan Inbound
}

// NewHub returns a new instance of Hub backed by s.
func NewHub(s store.Store) *Hub {
	return &Hub{
		store:      s,
		registry:   NewRegistry(),
		sanitizer:  bluemonday.StrictPolicy(),
		Register:   make(chan Registration),
		Unregister: make(chan *Client),
		Events:     make(chan Inbound, 1024),
	}
}

// Run manages incoming and outgoing hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case reg := <-h.Register:
			h.handleRegister(ctx, reg)

		case client := <-h.Unregister:
			// Safe to receive twice for the same client; only the
			// first removal closes the queue.
			if h.registry.Remove(client) {
				close(client.Send)
			}

		case ev := <-h.Events:
			switch ev.Frame.Type {
			case model.FrameMessage:
				h.handleMessage(ctx, ev)
			case model.FrameSeen:
				h.handleSeen(ctx, ev)
			case model.FrameTyping:
				h.handleTyping(ev)
			default:
				log.Printf("unknown frame type %q from [%s]", ev.Frame.Type, ev.Client.Username)
			}

		case <-ctx.Done():
			log.Printf("context cancelled: %v", ctx.Err())
			return
		}
	}
}

// handleRegister replays the full history into the client's queue and only
// then adds it to the registry. The queue is FIFO, so the snapshot always
// reaches the client before any live event published afterwards.
func (h *Hub) handleRegister(ctx context.Context, reg Registration) {
	client := reg.Client
	client.hub = h

	history, err := h.store.ListMessages(ctx)
	if err != nil {
		log.Printf("failed to load history for [%s]: %v", client.Username, err)
		client.Send <- model.Frame{Type: model.FrameError, Error: "failed to load history"}
		close(client.Send)
		close(reg.Done)
		return
	}

	client.Send <- model.Frame{Type: model.FrameHistory, Messages: history}
	h.registry.Add(client)
	close(reg.Done)

	slog.InfoContext(ctx, "client connected",
		slog.String("username", client.Username),
		slog.Int("connections", h.registry.Len()))
}

// handleMessage validates, persists and then broadcasts a new message.
// Persistence failures reach the sender only; nothing is broadcast that is
// not durable.
func (h *Hub) handleMessage(ctx context.Context, ev Inbound) {
	client := ev.Client

	if !client.allowMessage() {
		h.deliver(client, model.Frame{Type: model.FrameError, Error: "sending too fast, slow down"})
		return
	}

	// We need to sanitize incoming messages to prevent XSS.
	text := strings.TrimSpace(h.sanitizer.Sanitize(ev.Frame.Text))

	attachment := ev.Frame.Attachment
	if attachment != nil && (attachment.Ref == "" || attachment.Filename == "") {
		attachment = nil
	}

	if text == "" && attachment == nil {
		h.deliver(client, model.Frame{Type: model.FrameError, Error: "message is empty"})
		return
	}

	msg, err := h.store.AppendMessage(ctx, client.UserID, client.Username, text, attachment)
	if err != nil {
		log.Printf("failed to store payload to database: %v", err)
		h.deliver(client, model.Frame{Type: model.FrameError, Error: "message could not be saved"})
		return
	}

	h.broadcast(model.Frame{Type: model.FrameMessage, Message: &msg})
}

// handleSeen marks everything not authored by the viewer as seen, then
// broadcasts the authoritative seen-id set to everyone.
func (h *Hub) handleSeen(ctx context.Context, ev Inbound) {
	seenIDs, err := h.store.MarkSeen(ctx, ev.Client.UserID)
	if err != nil {
		log.Printf("failed to mark seen for [%s]: %v", ev.Client.Username, err)
		h.deliver(ev.Client, model.Frame{Type: model.FrameError, Error: "seen state could not be saved"})
		return
	}

	h.broadcast(model.Frame{Type: model.FrameSeen, SeenIDs: seenIDs})
}

// handleTyping relays the signal to everyone except the originator's own
// connections. No persistence, no retry.
func (h *Hub) handleTyping(ev Inbound) {
	client := ev.Client
	if !client.allowTyping() {
		return
	}

	frame := model.Frame{
		Type:     model.FrameTyping,
		UserID:   client.UserID,
		Username: client.Username,
		IsTyping: ev.Frame.IsTyping,
	}

	for _, c := range h.registry.All() {
		if c.UserID == client.UserID {
			continue
		}
		// Best effort only: a full queue drops the signal.
		select {
		case c.Send <- frame:
		default:
		}
	}
}

// broadcast delivers a frame to every registered connection, sender
// included, in publish order.
func (h *Hub) broadcast(frame model.Frame) {
	for _, c := range h.registry.All() {
		h.deliver(c, frame)
	}
}

// deliver enqueues a frame for one connection. When the queue is full the
// oldest entry is dropped so the newest state keeps flowing; a slow client
// only ever loses its own backlog.
func (h *Hub) deliver(c *Client, frame model.Frame) {
	select {
	case c.Send <- frame:
		return
	default:
	}

	select {
	case <-c.Send:
	default:
	}

	select {
	case c.Send <- frame:
	default:
		log.Printf("dropping frame for slow client [%s]", c.Username)
	}
}
