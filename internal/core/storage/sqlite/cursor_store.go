// Package sqlite keeps ingestion cursors in an embedded SQLite file, for
// deployments that store canonical rows elsewhere or run without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nwrousell/dashboard/internal/migrations"
)

const timeFormat = time.RFC3339Nano

const (
	queryGetCursor = `SELECT last_synced FROM sync_cursors WHERE source_id = ?`

	queryUpsertCursor = `
		INSERT INTO sync_cursors (source_id, last_synced, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			last_synced = excluded.last_synced,
			updated_at  = excluded.updated_at
	`

	queryListCursors = `SELECT source_id, last_synced FROM sync_cursors ORDER BY source_id ASC`
)

// CursorStore persists per-source sync cursors in SQLite.
type CursorStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the SQLite file at path and applies migrations.
func Open(path string) (*CursorStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cursor store path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := migrations.RunSQLiteMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &CursorStore{db: db, now: time.Now}, nil
}

// Get returns the last synced instant for sourceID; ok is false when none exists.
func (s *CursorStore) Get(ctx context.Context, sourceID string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, queryGetCursor, sourceID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cursor %s: %w", sourceID, err)
	}

	last, err := time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse cursor %s: %w", sourceID, err)
	}
	return last, true, nil
}

// Put upserts the cursor for sourceID.
func (s *CursorStore) Put(ctx context.Context, sourceID string, lastSynced time.Time) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertCursor,
		sourceID,
		lastSynced.Format(timeFormat),
		s.now().UTC().Format(timeFormat),
	); err != nil {
		return fmt.Errorf("write cursor %s: %w", sourceID, err)
	}
	return nil
}

// All returns every stored cursor.
func (s *CursorStore) All(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, queryListCursors)
	if err != nil {
		return nil, fmt.Errorf("list cursors: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("list cursors: scan row: %w", err)
		}
		last, err := time.Parse(timeFormat, raw)
		if err != nil {
			return nil, fmt.Errorf("list cursors: parse %s: %w", id, err)
		}
		out[id] = last
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cursors: iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *CursorStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
