// Package testutil provides store fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

// NewMemoryStore returns a fresh in-memory store rendering timestamps in UTC.
func NewMemoryStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	return store.NewMemoryStore(time.UTC)
}

// NewSQLiteStore creates a SQLite store on a temp file that is removed with
// the test.
func NewSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "chat_test.db")
	s, err := store.NewSQLiteStore(ctx, dbPath, time.UTC)
	if err != nil {
		t.Fatalf("failed to create sqlite test store: %+v", err)
	}
	t.Cleanup(s.Close)

	return s
}
