// Package replay persists raw GitHub pages so that a report can be re-run
// from disk without network access.
package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/naka-gawa/gh-metrics/internal/domain"
)

// ErrNotFound is returned by a Store when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Store is durable storage for encoded pages.
type Store interface {
	Get(ctx context.Context, key domain.CacheKey) ([]byte, error)
	Put(ctx context.Context, key domain.CacheKey, body []byte) error
	Close() error
}

// FileStore keeps one JSON file per entry under <dir>/<template>/<digest>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key domain.CacheKey) string {
	return filepath.Join(s.dir, key.Template, key.Digest+".json")
}

func (s *FileStore) Get(_ context.Context, key domain.CacheKey) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// Put writes to a temporary file and renames it into place, so readers never
// observe a partially written entry.
func (s *FileStore) Put(_ context.Context, key domain.CacheKey, body []byte) error {
	target := s.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+key.Digest+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
