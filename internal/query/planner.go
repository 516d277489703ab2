// Package query compiles windowed aggregation requests into a single storage round-trip.
package query

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/nwrousell/dashboard/internal/core/aggregation"
	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/storage"
)

// Planner validates aggregation requests against the catalog and forwards them
// to storage as one bulk query, however many periods are requested.
type Planner struct {
	store   storage.Store
	catalog *storage.Catalog
}

func NewPlanner(store storage.Store, catalog *storage.Catalog) *Planner {
	return &Planner{store: store, catalog: catalog}
}

// Aggregate returns one row per (period, group) pair with data, ordered by period.
// Invalid requests fail with InvalidArgument before storage is touched.
func (p *Planner) Aggregate(ctx context.Context, req aggregation.Request) ([]aggregation.Row, error) {
	if err := p.Validate(req); err != nil {
		return nil, err
	}
	if len(req.Periods) == 0 {
		return []aggregation.Row{}, nil
	}

	start := time.Now()
	rows, err := p.store.Aggregate(ctx, req)
	if err != nil {
		if apperrors.CodeOf(err) == "" {
			err = apperrors.StorageFailure(err, "aggregate %s(%s) over %s", req.Kind, req.Metric, req.Table)
		}
		return nil, err
	}

	rows = reshape(req, rows)

	slog.Debug("[Planner] Aggregated",
		"table", req.Table,
		"metric", req.Metric,
		"kind", req.Kind,
		"group_by", req.GroupBy,
		"periods", len(req.Periods),
		"rows", len(rows),
		"elapsed", time.Since(start),
	)
	return rows, nil
}

// Validate checks the kind, identifiers and periods of req.
func (p *Planner) Validate(req aggregation.Request) error {
	if !aggregation.ValidKind(req.Kind) {
		return apperrors.InvalidArgumentf("unsupported aggregation kind %q (supported: %v)", req.Kind, aggregation.Kinds())
	}

	if !storage.ValidIdentifier(req.Table) {
		return apperrors.InvalidArgumentf("invalid table name %q", req.Table)
	}
	schema, ok := p.catalog.Table(req.Table)
	if !ok {
		return apperrors.InvalidArgumentf("unknown table %q", req.Table)
	}

	if !storage.ValidIdentifier(req.Metric) {
		return apperrors.InvalidArgumentf("invalid metric column %q", req.Metric)
	}
	metric, ok := schema.Column(req.Metric)
	if !ok {
		return apperrors.InvalidArgumentf("table %q has no column %q", req.Table, req.Metric)
	}
	if !metric.Type.Numeric() {
		return apperrors.InvalidArgumentf("column %q is %s, not numeric", req.Metric, metric.Type)
	}

	if req.Grouped() {
		if !storage.ValidIdentifier(req.GroupBy) {
			return apperrors.InvalidArgumentf("invalid group_by column %q", req.GroupBy)
		}
		if _, ok := schema.Column(req.GroupBy); !ok {
			return apperrors.InvalidArgumentf("table %q has no column %q", req.Table, req.GroupBy)
		}
	}

	for i, period := range req.Periods {
		if !period.Valid() {
			return apperrors.InvalidArgumentf("period %d ends before it starts", i)
		}
	}
	return nil
}

// reshape orders rows by period, fills missing labels and drops rows that
// reference a period outside the request.
func reshape(req aggregation.Request, rows []aggregation.Row) []aggregation.Row {
	out := make([]aggregation.Row, 0, len(rows))
	for _, row := range rows {
		if row.Period < 0 || row.Period >= len(req.Periods) {
			slog.Warn("[Planner] Dropping row for unknown period", "period", row.Period, "table", req.Table)
			continue
		}
		if row.PeriodLabel == "" {
			row.PeriodLabel = req.Periods[row.Period].Label()
		}
		if !req.Grouped() {
			row.Group = ""
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
