// Package model defines data structures shared by the hub, store and handlers.
package model

import "github.com/google/uuid"

// Attachment is an opaque content reference plus the original filename.
// The ref is produced by the attachment store and echoed back verbatim
// in replay and broadcast; the server never interprets it.
type Attachment struct {
	Ref      string `json:"ref"`
	Filename string `json:"filename"`
}

// Message holds information about a single message. The ID is assigned by
// the store at insertion time and defines the history order. CreatedAt is
// a display timestamp rendered in the deployment timezone. Only Seen ever
// mutates after creation.
type Message struct {
	ID         int64       `json:"id"`
	SenderID   uuid.UUID   `json:"sender_id"`
	Sender     string      `json:"sender"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  string      `json:"created_at"`
	Seen       bool        `json:"seen"`
}

// User holds a chat participant's identity.
type User struct {
	ID             uuid.UUID `json:"user_id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
}
