// Package cursor tracks, per source, how far ingestion has progressed and
// derives the next fetch window from it.
package cursor

import (
	"context"
	"fmt"
	"time"

	"github.com/nwrousell/dashboard/internal/core/timewindow"
)

// KV is the durable source_id → last_synced mapping behind a Cursor.
type KV interface {
	Get(ctx context.Context, sourceID string) (time.Time, bool, error)
	Put(ctx context.Context, sourceID string, lastSynced time.Time) error
}

// Lister is implemented by KV backends that can enumerate their cursors.
type Lister interface {
	All(ctx context.Context) (map[string]time.Time, error)
}

// Cursor computes fetch windows and records completed ones.
type Cursor struct {
	kv  KV
	now func() time.Time
}

func New(kv KV) *Cursor {
	return &Cursor{kv: kv, now: time.Now}
}

// WithClock overrides the source of "now". Intended for tests.
func (c *Cursor) WithClock(now func() time.Time) *Cursor {
	c.now = now
	return c
}

// WindowFor returns [last_synced, now] for sourceID, or [defaultEpoch, now]
// when the source has never completed a cycle.
func (c *Cursor) WindowFor(ctx context.Context, sourceID string, defaultEpoch time.Time) (timewindow.Window, error) {
	now := c.now()
	last, ok, err := c.kv.Get(ctx, sourceID)
	if err != nil {
		return timewindow.Window{}, fmt.Errorf("cursor %s: %w", sourceID, err)
	}
	start := defaultEpoch
	if ok {
		start = last
	}
	if start.After(now) {
		start = now
	}
	return timewindow.Window{Start: start, End: now}, nil
}

// Advance records that everything up to `to` has been ingested for sourceID.
// Call it only after the rows for that window have been committed.
func (c *Cursor) Advance(ctx context.Context, sourceID string, to time.Time) error {
	if err := c.kv.Put(ctx, sourceID, to); err != nil {
		return fmt.Errorf("advance cursor %s: %w", sourceID, err)
	}
	return nil
}

// Positions returns every stored cursor. The backing KV must implement Lister.
func (c *Cursor) Positions(ctx context.Context) (map[string]time.Time, error) {
	l, ok := c.kv.(Lister)
	if !ok {
		return nil, fmt.Errorf("cursor backend %T cannot list cursors", c.kv)
	}
	all, err := l.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cursors: %w", err)
	}
	return all, nil
}
