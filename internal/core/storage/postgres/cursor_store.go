package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CursorStore persists per-source sync cursors in the sync_cursors table.
// The table is created by migrations.
type CursorStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewCursorStore creates a CursorStore sharing the given connection.
func NewCursorStore(db *sql.DB) *CursorStore {
	return &CursorStore{db: db, now: time.Now}
}

// Get returns the last synced instant for sourceID; ok is false when none exists.
func (s *CursorStore) Get(ctx context.Context, sourceID string) (time.Time, bool, error) {
	var last time.Time
	err := s.db.QueryRowContext(ctx, queryGetCursor, sourceID).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cursor %s: %w", sourceID, err)
	}
	return last, true, nil
}

// Put upserts the cursor for sourceID.
func (s *CursorStore) Put(ctx context.Context, sourceID string, lastSynced time.Time) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertCursor, sourceID, lastSynced, s.now().UTC()); err != nil {
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
		var (
			id   string
			last time.Time
		)
		if err := rows.Scan(&id, &last); err != nil {
			return nil, fmt.Errorf("list cursors: scan row: %w", err)
		}
		out[id] = last
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cursors: iterate rows: %w", err)
	}
	return out, nil
}
