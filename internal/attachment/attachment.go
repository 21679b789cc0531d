// Package attachment stores uploaded message attachments on disk and hands
// back opaque content references. The rest of the server never interprets a
// reference; it is echoed verbatim in replay and broadcast.
package attachment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// RefPrefix is the URL path under which stored attachments are served.
const RefPrefix = "/files/"

// Store writes attachments under a single directory, one file per upload.
type Store struct {
	dir string
}

// NewStore ensures dir exists and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("attachment: create upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory attachments are written to.
func (s *Store) Dir() string { return s.dir }

// Save persists the attachment bytes and returns the content reference.
// Filenames are prefixed with nanoseconds to keep them unique.
func (s *Store) Save(r io.Reader, filename string) (string, error) {
	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(filename))
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("attachment: create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("attachment: write file: %w", err)
	}

	return RefPrefix + name, nil
}
