// Package modestore persists the last active mode to SQLite so the agent
// can resume it after a restart.
package modestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed mode memory store. It implements
// mode.MemoryStore.
type Store struct {
	db *sql.DB
}

// Open initializes the database at the given path, creating the parent
// directory and schema as needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open mode memory db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS mode_memory (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_mode TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create mode_memory table: %w", err)
	}
	return nil
}

// Save records the last active mode, overwriting any previous record.
func (s *Store) Save(ctx context.Context, mode string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mode_memory (id, last_mode, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_mode = excluded.last_mode, updated_at = excluded.updated_at
	`, mode, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save mode memory: %w", err)
	}
	return nil
}

// Load returns the persisted last mode and its timestamp. An empty mode name
// with a nil error means nothing has been saved yet.
func (s *Store) Load(ctx context.Context) (string, time.Time, error) {
	var mode, stamp string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_mode, updated_at FROM mode_memory WHERE id = 1`,
	).Scan(&mode, &stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load mode memory: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse mode memory timestamp: %w", err)
	}
	return mode, at, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
