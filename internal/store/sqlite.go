package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
)

// SQLiteStore handles SQLite database operations. It is the default when no
// DATABASE_URL is configured; a single file covers a two-person room fine.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewSQLiteStore creates a new SQLite store. If dbPath is empty, defaults
// to "./data/chat.db".
func NewSQLiteStore(ctx context.Context, dbPath string, loc *time.Location) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chat.db"
	}
	if loc == nil {
		loc = time.UTC
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create db directory: %w", err)
	}

	// WAL keeps appends atomic under concurrent readers.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, loc: loc}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	return s, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		hashed_password TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id TEXT NOT NULL REFERENCES users(user_id),
		sender TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		attachment_ref TEXT NOT NULL DEFAULT '',
		attachment_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		seen INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS refresh_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(user_id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_seen ON messages(seen);
	CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, senderID uuid.UUID, sender, text string, attachment *model.Attachment) (model.Message, error) {
	attachment, err := validateContent(text, attachment)
	if err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		SenderID:   senderID,
		Sender:     sender,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  time.Now().In(s.loc).Format(DisplayTimeFormat),
	}

	var ref, name string
	if attachment != nil {
		ref, name = attachment.Ref, attachment.Filename
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, sender, text, attachment_ref, attachment_name, created_at, seen)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		senderID.String(), sender, text, ref, name, msg.CreatedAt,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("store: append message: %w", err)
	}

	msg.ID, err = res.LastInsertId()
	if err != nil {
		return model.Message{}, fmt.Errorf("store: message id: %w", err)
	}

	return msg, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender, text, attachment_ref, attachment_name, created_at, seen
		FROM messages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var (
			msg       model.Message
			senderID  string
			ref, name string
		)
		if err := rows.Scan(&msg.ID, &senderID, &msg.Sender, &msg.Text, &ref, &name, &msg.CreatedAt, &msg.Seen); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		if msg.SenderID, err = uuid.Parse(senderID); err != nil {
			return nil, fmt.Errorf("store: corrupt sender id %q: %w", senderID, err)
		}
		if ref != "" {
			msg.Attachment = &model.Attachment{Ref: ref, Filename: name}
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *SQLiteStore) MarkSeen(ctx context.Context, viewerID uuid.UUID) ([]int64, error) {
	// Single transaction so the pass observes a consistent snapshot of the
	// message set; a message appended concurrently by the viewer keeps
	// seen=0.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: mark seen: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET seen = 1 WHERE seen = 0 AND sender_id != ?`,
		viewerID.String(),
	); err != nil {
		return nil, fmt.Errorf("store: mark seen: %w", err)
	}

	ids, err := seenIDsTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: mark seen commit: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) SeenIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM messages WHERE seen = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: seen ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func seenIDsTx(ctx context.Context, tx *sql.Tx) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM messages WHERE seen = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: seen ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, userID uuid.UUID, username, hashedPassword string) (model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, hashed_password) VALUES (?, ?, ?)`,
		userID.String(), username, hashedPassword,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return model.User{}, ErrUserExists
		}
		return model.User{}, fmt.Errorf("store: create user: %w", err)
	}

	return model.User{ID: userID, Username: username, HashedPassword: hashedPassword}, nil
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return s.getUser(ctx, `SELECT user_id, username, hashed_password FROM users WHERE username = ?`, username)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, userID uuid.UUID) (model.User, error) {
	return s.getUser(ctx, `SELECT user_id, username, hashed_password FROM users WHERE user_id = ?`, userID.String())
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg any) (model.User, error) {
	var (
		user model.User
		id   string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&id, &user.Username, &user.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("store: get user: %w", err)
	}
	if user.ID, err = uuid.Parse(id); err != nil {
		return model.User{}, fmt.Errorf("store: corrupt user id %q: %w", id, err)
	}
	return user, nil
}

func (s *SQLiteStore) CreateRefreshToken(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID.String(), expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: create refresh token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserFromRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	var (
		id        string
		expiresAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM refresh_tokens WHERE token = ?`, token,
	).Scan(&id, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.UUID{}, ErrNotFound
	}
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("store: get refresh token: %w", err)
	}
	if time.Now().After(expiresAt) {
		return uuid.UUID{}, ErrNotFound
	}
	return uuid.Parse(id)
}

func (s *SQLiteStore) RevokeRefreshToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("store: revoke refresh token: %w", err)
	}
	return nil
}
