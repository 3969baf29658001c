package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bnema/chatlink/internal/ports"
	_ "modernc.org/sqlite"
)

const (
	queueDirMode = 0o700

	schema = `CREATE TABLE IF NOT EXISTS events (
	seq   INTEGER PRIMARY KEY AUTOINCREMENT,
	key   TEXT NOT NULL UNIQUE,
	value BLOB NOT NULL
)`
)

// Store is a durable key/value area for persisted events. Entries keep the
// position of their first insertion; overwriting a key does not move it.
type Store struct {
	db *sql.DB
}

var _ ports.EventStore = (*Store)(nil)

// Open opens or creates the database at path with WAL journaling and a
// busy timeout.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("queue path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), queueDirMode); err != nil {
			return nil, fmt.Errorf("create queue directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s on %s: %w", pragma, path, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	return &Store{db: db}, nil
}

// Put stores value as raw bytes so payloads that are not valid UTF-8 come
// back unchanged.
func (s *Store) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, []byte(value))
	if err != nil {
		return fmt.Errorf("put event %s: %w", key, err)
	}
	return nil
}

func (s *Store) Entries(ctx context.Context) ([]ports.StoredEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []ports.StoredEntry
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entries = append(entries, ports.StoredEntry{Key: key, Value: string(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return entries, nil
}

// Remove deletes id and its fragment keys id#0, id#1, ...
func (s *Store) Remove(ctx context.Context, id string) error {
	prefix := id + "#"
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE key = ? OR substr(key, 1, ?) = ?`,
		id, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return fmt.Errorf("remove event %s: %w", id, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
