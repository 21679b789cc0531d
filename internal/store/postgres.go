package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPostgresStore connects to Postgres and runs pending migrations.
func NewPostgresStore(ctx context.Context, databaseURL string, loc *time.Location) (*PostgresStore, error) {
	if loc == nil {
		loc = time.UTC
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: could not connect to the postgresql database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: goose dialect: %w", err)
	}

	dbForGoose := stdlib.OpenDBFromPool(pool)
	if err := goose.Up(dbForGoose, "migrations"); err != nil {
		dbForGoose.Close()
		pool.Close()
		return nil, fmt.Errorf("store: goose up: %w", err)
	}
	if err := dbForGoose.Close(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: close migration conn: %w", err)
	}

	return &PostgresStore{pool: pool, loc: loc}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) AppendMessage(ctx context.Context, senderID uuid.UUID, sender, text string, attachment *model.Attachment) (model.Message, error) {
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

	err = s.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, sender, text, attachment_ref, attachment_name, created_at, seen)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id`,
		senderID, sender, text, ref, name, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return model.Message{}, fmt.Errorf("store: append message: %w", err)
	}

	return msg, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
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
			ref, name string
		)
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.Sender, &msg.Text, &ref, &name, &msg.CreatedAt, &msg.Seen); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		if ref != "" {
			msg.Attachment = &model.Attachment{Ref: ref, Filename: name}
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *PostgresStore) MarkSeen(ctx context.Context, viewerID uuid.UUID) ([]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: mark seen: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE messages SET seen = TRUE WHERE seen = FALSE AND sender_id != $1`,
		viewerID,
	); err != nil {
		return nil, fmt.Errorf("store: mark seen: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT id FROM messages WHERE seen = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: seen ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("store: seen ids: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: mark seen commit: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) SeenIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM messages WHERE seen = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: seen ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("store: seen ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, userID uuid.UUID, username, hashedPassword string) (model.User, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (user_id, username, hashed_password) VALUES ($1, $2, $3)`,
		userID, username, hashedPassword,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, ErrUserExists
		}
		return model.User{}, fmt.Errorf("store: create user: %w", err)
	}

	return model.User{ID: userID, Username: username, HashedPassword: hashedPassword}, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return s.getUser(ctx, `SELECT user_id, username, hashed_password FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID uuid.UUID) (model.User, error) {
	return s.getUser(ctx, `SELECT user_id, username, hashed_password FROM users WHERE user_id = $1`, userID)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (model.User, error) {
	var user model.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Username, &user.HashedPassword)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("store: get user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) CreateRefreshToken(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: create refresh token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserFromRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	var (
		userID    uuid.UUID
		expiresAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, expires_at FROM refresh_tokens WHERE token = $1`, token,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, ErrNotFound
	}
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("store: get refresh token: %w", err)
	}
	if time.Now().After(expiresAt) {
		return uuid.UUID{}, ErrNotFound
	}
	return userID, nil
}

func (s *PostgresStore) RevokeRefreshToken(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("store: revoke refresh token: %w", err)
	}
	return nil
}
