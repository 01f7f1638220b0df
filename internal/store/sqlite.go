package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the ConversationStore implementation backed by a local
// SQLite database. One row per identity; writes are committed before the
// call returns.
type SQLiteStore struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversations (
	identity   TEXT PRIMARY KEY,
	thread_ref TEXT NOT NULL,
	screening  TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);
`

// OpenSQLite opens (creating if necessary) the database at path and ensures
// the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// SQLite handles one writer at a time; serialise access through a
	// single connection so concurrent requests queue instead of erroring.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Get returns the record for identity, or ok=false if none exists.
func (s *SQLiteStore) Get(ctx context.Context, identity string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT identity, thread_ref, screening, created_at, updated_at
		 FROM conversations WHERE identity = ?`, identity)

	var rec Record
	var screening string
	err := row.Scan(&rec.Identity, &rec.ThreadRef, &screening, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s: %w", identity, err)
	}
	rec.Screening = Screening(screening)
	return rec, true, nil
}

// Create inserts a new record with screening initialised to pending.
func (s *SQLiteStore) Create(ctx context.Context, identity, threadRef string) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("create %s: %w", identity, err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE identity = ?)`, identity).Scan(&exists)
	if err != nil {
		return Record{}, fmt.Errorf("create %s: %w", identity, err)
	}
	if exists {
		return Record{}, fmt.Errorf("create %s: %w", identity, ErrAlreadyExists)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (identity, thread_ref, screening, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		identity, threadRef, string(ScreeningPending), now, now)
	if err != nil {
		return Record{}, fmt.Errorf("create %s: %w", identity, err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("create %s: %w", identity, err)
	}

	return Record{
		Identity:  identity,
		ThreadRef: threadRef,
		Screening: ScreeningPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetScreening updates the screening state, preserving all other fields.
func (s *SQLiteStore) SetScreening(ctx context.Context, identity string, sc Screening) error {
	return s.update(ctx, identity,
		`UPDATE conversations SET screening = ?, updated_at = ? WHERE identity = ?`,
		string(sc))
}

// SetThreadRef replaces the thread handle, preserving screening state.
// Used when the remote thread has expired and a replacement was created.
func (s *SQLiteStore) SetThreadRef(ctx context.Context, identity, threadRef string) error {
	return s.update(ctx, identity,
		`UPDATE conversations SET thread_ref = ?, updated_at = ? WHERE identity = ?`,
		threadRef)
}

func (s *SQLiteStore) update(ctx context.Context, identity, query, value string) error {
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), identity)
	if err != nil {
		return fmt.Errorf("update %s: %w", identity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", identity, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", identity, ErrNotFound)
	}
	return nil
}

// SweepExpired deletes records not touched within window. The remote
// service expires threads after the same window, so the cached handles
// are useless past it.
func (s *SQLiteStore) SweepExpired(ctx context.Context, window time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-window)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	return int(n), nil
}
