package model

import "github.com/google/uuid"

// Frame types carried over the websocket, both directions.
const (
	FrameMessage = "message"
	FrameSeen    = "seen"
	FrameTyping  = "typing"
	FrameHistory = "history"
	FrameError   = "error"
)

// Frame is the envelope for every websocket payload.
//
// Inbound, the client fills Type plus Text/Attachment (message), IsTyping
// (typing), or nothing (seen). Outbound, the server fills Type plus Message,
// Messages (history replay), SeenIDs (seen update), UserID/Username/IsTyping
// (typing relay) or Error.
type Frame struct {
	Type string `json:"type"`

	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`

	Message  *Message  `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`

	SeenIDs []int64 `json:"seen_ids,omitempty"`

	UserID   uuid.UUID `json:"user_id,omitempty"`
	Username string    `json:"username,omitempty"`
	IsTyping bool      `json:"is_typing,omitempty"`

	Error string `json:"error,omitempty"`
}
