package replay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/naka-gawa/gh-metrics/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps all entries in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// WAL lets concurrent workers read while one writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS responses (
		key        TEXT PRIMARY KEY,
		template   TEXT NOT NULL,
		body       BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key domain.CacheKey) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, "SELECT body FROM responses WHERE key = ?", key.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select response: %w", err)
	}
	return body, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key domain.CacheKey, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO responses (key, template, body, created_at) VALUES (?, ?, ?, ?)",
		key.String(), key.Template, body, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM responses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
