// Package store implements durable storage for messages, users and refresh
// sessions. The message log is an ordered append log: the store is the single
// writer of message ids and seen flags.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
)

// DisplayTimeFormat renders message timestamps for the chat UI. Timestamps
// are captured at insertion time in the deployment timezone.
const DisplayTimeFormat = "Jan 2, 2006 3:04 PM"

var (
	// ErrEmptyMessage is returned when a message carries neither text nor
	// an attachment.
	ErrEmptyMessage = errors.New("store: message must carry text or an attachment")

	// ErrNotFound is returned when a user or token does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrUserExists is returned when the username is already taken.
	ErrUserExists = errors.New("store: username already taken")
)

// Store is the interface for persistent storage. MemoryStore, SQLiteStore
// and PostgresStore implement this interface.
type Store interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Message log. AppendMessage assigns the next id, records the display
	// timestamp and persists with seen=false. ListMessages returns the full
	// history in id order. MarkSeen flips seen=true on every message not
	// authored by the viewer and returns the complete set of seen ids; it
	// is idempotent and atomic with respect to concurrent appends.
	AppendMessage(ctx context.Context, senderID uuid.UUID, sender, text string, attachment *model.Attachment) (model.Message, error)
	ListMessages(ctx context.Context) ([]model.Message, error)
	MarkSeen(ctx context.Context, viewerID uuid.UUID) ([]int64, error)
	SeenIDs(ctx context.Context) ([]int64, error)

	// User operations
	CreateUser(ctx context.Context, userID uuid.UUID, username, hashedPassword string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (model.User, error)

	// Refresh sessions
	CreateRefreshToken(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error
	GetUserFromRefreshToken(ctx context.Context, token string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

// validateContent enforces the text-or-attachment invariant shared by all
// backends. An attachment missing its ref counts as absent.
func validateContent(text string, attachment *model.Attachment) (*model.Attachment, error) {
	if attachment != nil && attachment.Ref == "" {
		attachment = nil
	}
	if text == "" && attachment == nil {
		return nil, ErrEmptyMessage
	}
	return attachment, nil
}
