// Package sqlite provides a core.ContentStore backed by a single SQLite file,
// for vaults where one JSON file per parsed document gets unwieldy.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/aretw0/projctx/pkg/adapters/fs"
	"github.com/aretw0/projctx/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_content (
	key        TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// ContentStore implements core.ContentStore on SQLite.
type ContentStore struct {
	db   *sql.DB
	path string
}

var _ core.ContentStore = (*ContentStore)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*ContentStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &ContentStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *ContentStore) Close() error {
	return s.db.Close()
}

// CacheKey implements core.ContentStore. Keys match the filesystem store so
// the backends are interchangeable.
func (s *ContentStore) CacheKey(file core.File, additionalContext string) string {
	return fs.ContentKey(file, additionalContext)
}

// Get implements core.ContentStore.
func (s *ContentStore) Get(ctx context.Context, key string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx, "SELECT content FROM file_content WHERE key = ?", key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read content %s: %w", key, err)
	}
	return content, true, nil
}

// Set implements core.ContentStore.
func (s *ContentStore) Set(ctx context.Context, key string, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_content (key, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		key, content, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write content %s: %w", key, err)
	}
	return nil
}

// Remove implements core.ContentStore.
func (s *ContentStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM file_content WHERE key = ?", key)
	return err
}

// Clear implements core.ContentStore.
func (s *ContentStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM file_content")
	return err
}

// Len returns the number of stored entries.
func (s *ContentStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_content").Scan(&n)
	return n, err
}
