package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
)

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "chat_test.db"), time.UTC)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %+v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, username string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := s.CreateUser(context.Background(), id, username, "hash"); err != nil {
		t.Fatalf("failed to seed user: %+v", err)
	}
	return id
}

func TestSQLiteAppendAndList(t *testing.T) {
	req := require.New(t)
	s := newSQLite(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	msg, err := s.AppendMessage(ctx, alice, "alice", "hi", nil)
	req.NoError(err)
	req.Equal(int64(1), msg.ID)

	att := &model.Attachment{Ref: "/files/r1", Filename: "photo.png"}
	msg2, err := s.AppendMessage(ctx, alice, "alice", "", att)
	req.NoError(err)
	req.Equal(int64(2), msg2.ID)

	messages, err := s.ListMessages(ctx)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("hi", messages[0].Text)
	req.Nil(messages[0].Attachment)
	req.Empty(messages[1].Text)
	req.Equal(att, messages[1].Attachment)
	req.Equal(alice, messages[1].SenderID)
	req.False(messages[0].Seen)
}

func TestSQLiteAppendRejectsEmptyContent(t *testing.T) {
	req := require.New(t)
	s := newSQLite(t)
	alice := seedUser(t, s, "alice")

	_, err := s.AppendMessage(context.Background(), alice, "alice", "", nil)
	req.ErrorIs(err, ErrEmptyMessage)
}

func TestSQLiteMarkSeenRoundTrip(t *testing.T) {
	req := require.New(t)
	s := newSQLite(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	// The Alice/Bob exchange: message, seen, attachment-only reply.
	_, err := s.AppendMessage(ctx, alice, "alice", "hi", nil)
	req.NoError(err)

	ids, err := s.MarkSeen(ctx, bob)
	req.NoError(err)
	req.Equal([]int64{1}, ids)

	_, err = s.AppendMessage(ctx, bob, "bob", "", &model.Attachment{Ref: "r1", Filename: "photo.png"})
	req.NoError(err)

	// A late joiner replays exactly [1 seen, 2 unseen].
	messages, err := s.ListMessages(ctx)
	req.NoError(err)
	req.Len(messages, 2)
	req.True(messages[0].Seen)
	req.False(messages[1].Seen)

	// Idempotent for the same viewer.
	again, err := s.MarkSeen(ctx, bob)
	req.NoError(err)
	req.Equal([]int64{1}, again)
}

func TestSQLiteUsers(t *testing.T) {
	req := require.New(t)
	s := newSQLite(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	_, err := s.CreateUser(ctx, uuid.New(), "alice", "otherhash")
	req.ErrorIs(err, ErrUserExists)

	user, err := s.GetUserByUsername(ctx, "alice")
	req.NoError(err)
	req.Equal(alice, user.ID)
	req.Equal("hash", user.HashedPassword)

	user, err = s.GetUserByID(ctx, alice)
	req.NoError(err)
	req.Equal("alice", user.Username)

	_, err = s.GetUserByUsername(ctx, "nobody")
	req.ErrorIs(err, ErrNotFound)
}

func TestSQLiteRefreshTokens(t *testing.T) {
	req := require.New(t)
	s := newSQLite(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	req.NoError(s.CreateRefreshToken(ctx, "tok", alice, time.Now().Add(time.Hour)))

	got, err := s.GetUserFromRefreshToken(ctx, "tok")
	req.NoError(err)
	req.Equal(alice, got)

	req.NoError(s.CreateRefreshToken(ctx, "expired", alice, time.Now().Add(-time.Hour)))
	_, err = s.GetUserFromRefreshToken(ctx, "expired")
	req.ErrorIs(err, ErrNotFound)

	req.NoError(s.RevokeRefreshToken(ctx, "tok"))
	_, err = s.GetUserFromRefreshToken(ctx, "tok")
	req.ErrorIs(err, ErrNotFound)
}
