package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
)

// MemoryStore keeps the full state in memory. It backs tests and throwaway
// development runs; nothing survives a restart.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []model.Message
	users    map[uuid.UUID]model.User
	byName   map[string]uuid.UUID
	tokens   map[string]refreshToken
	loc      *time.Location
}

type refreshToken struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-memory store rendering timestamps in loc.
func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{
		nextID: 1,
		users:  make(map[uuid.UUID]model.User),
		byName: make(map[string]uuid.UUID),
		tokens: make(map[string]refreshToken),
		loc:    loc,
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) AppendMessage(ctx context.Context, senderID uuid.UUID, sender, text string, attachment *model.Attachment) (model.Message, error) {
	attachment, err := validateContent(text, attachment)
	if err != nil {
		return model.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := model.Message{
		ID:         s.nextID,
		SenderID:   senderID,
		Sender:     sender,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  time.Now().In(s.loc).Format(DisplayTimeFormat),
		Seen:       false,
	}
	s.nextID++
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *MemoryStore) MarkSeen(ctx context.Context, viewerID uuid.UUID) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].SenderID != viewerID {
			s.messages[i].Seen = true
		}
	}
	return s.seenIDsLocked(), nil
}

func (s *MemoryStore) SeenIDs(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seenIDsLocked(), nil
}

func (s *MemoryStore) seenIDsLocked() []int64 {
	return lo.FilterMap(s.messages, func(m model.Message, _ int) (int64, bool) {
		return m.ID, m.Seen
	})
}

func (s *MemoryStore) CreateUser(ctx context.Context, userID uuid.UUID, username, hashedPassword string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[username]; exists {
		return model.User{}, ErrUserExists
	}

	user := model.User{ID: userID, Username: username, HashedPassword: hashedPassword}
	s.users[userID] = user
	s.byName[username] = userID
	return user, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[username]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, userID uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) CreateRefreshToken(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = refreshToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) GetUserFromRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[token]
	if !ok || time.Now().After(rt.expiresAt) {
		return uuid.UUID{}, ErrNotFound
	}
	return rt.userID, nil
}

func (s *MemoryStore) RevokeRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
	return nil
}
