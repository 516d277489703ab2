// Package source defines the collaborators that feed the ingestion pipeline
// and the fixed registry they are assembled into.
package source

import (
	"context"
	"time"

	"github.com/nwrousell/dashboard/internal/core/segment"
	"github.com/nwrousell/dashboard/internal/core/storage"
	"github.com/nwrousell/dashboard/internal/core/timewindow"
)

// Source is an external tracker that owns one canonical table.
type Source interface {
	ID() string
	Table() string
	Schema() storage.Schema
	// DefaultEpoch is where the first fetch starts when no cursor exists.
	DefaultEpoch() time.Time
}

// RowSource produces rows already shaped like its schema.
// A nil since means "from the beginning".
type RowSource interface {
	Source
	FetchRows(ctx context.Context, since *time.Time, until time.Time) ([]storage.Row, error)
}

// EventSource produces raw labeled events that go through the segmenter.
// Its table is always SegmentSchema.
type EventSource interface {
	Source
	FetchEvents(ctx context.Context, w timewindow.Window) ([]segment.RawEvent, error)
	Categories() []string
	GapThreshold() time.Duration
}

// SegmentSchema is the canonical table layout for segmented sources.
var SegmentSchema = storage.Schema{
	{Name: storage.TimestampColumn, Type: storage.TypeTimestamp},
	{Name: "duration", Type: storage.TypeDuration},
	{Name: "category", Type: storage.TypeText},
}

// SegmentRows converts segments into rows of SegmentSchema.
func SegmentRows(segments []segment.Segment) []storage.Row {
	rows := make([]storage.Row, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, storage.Row{s.Start, s.Duration, s.Category})
	}
	return rows
}
