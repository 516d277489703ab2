package storage

import (
	"context"

	"github.com/nwrousell/dashboard/internal/core/aggregation"
)

// Store is the storage collaborator behind ingestion and queries.
type Store interface {
	// CreateTable creates the table if it does not exist. Idempotent.
	// Rejects schemas without the leading timestamp column.
	CreateTable(ctx context.Context, name string, schema Schema) error

	// Insert writes all rows in one transaction: every row commits or none does.
	Insert(ctx context.Context, table string, schema Schema, rows []Row) error

	// Aggregate answers a validated request in a single round-trip.
	// Rows come back ordered by period; pairs without data are absent.
	Aggregate(ctx context.Context, req aggregation.Request) ([]aggregation.Row, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
