// Package memory is an in-process storage.Store for development and tests.
// It computes aggregates with the same semantics as the SQL backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nwrousell/dashboard/internal/core/aggregation"
	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/storage"
)

type table struct {
	schema storage.Schema
	rows   []storage.Row
}

// Store keeps tables in memory. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

func (s *Store) CreateTable(_ context.Context, name string, schema storage.Schema) error {
	if !storage.ValidIdentifier(name) {
		return apperrors.InvalidArgumentf("invalid table name %q", name)
	}
	if err := schema.Validate(); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tables[name]; ok {
		if !equalNames(existing.schema, schema) {
			return apperrors.PreconditionFailuref("table %q exists with columns %v", name, existing.schema.Names())
		}
		return nil
	}
	s.tables[name] = &table{schema: schema}
	return nil
}

// Insert validates every row before appending any, so a bad row leaves the table untouched.
func (s *Store) Insert(_ context.Context, name string, schema storage.Schema, rows []storage.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return apperrors.StorageFailure(fmt.Errorf("no such table"), "insert into %s", name)
	}
	if !equalNames(t.schema, schema) {
		return apperrors.StorageFailure(fmt.Errorf("columns %v do not match table columns %v", schema.Names(), t.schema.Names()), "insert into %s", name)
	}
	for i, row := range rows {
		if err := t.schema.CheckRow(row); err != nil {
			return apperrors.StorageFailure(err, "insert into %s: row %d", name, i)
		}
	}

	for _, row := range rows {
		cp := make(storage.Row, len(row))
		copy(cp, row)
		t.rows = append(t.rows, cp)
	}
	return nil
}

func (s *Store) Aggregate(_ context.Context, req aggregation.Request) ([]aggregation.Row, error) {
	reducer, ok := aggregation.Reducers[req.Kind]
	if !ok {
		return nil, apperrors.InvalidArgumentf("unsupported aggregation kind %q", req.Kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[req.Table]
	if !ok {
		return nil, apperrors.StorageFailure(fmt.Errorf("no such table"), "aggregate %s", req.Table)
	}
	metricIdx := index(t.schema, req.Metric)
	if metricIdx < 0 {
		return nil, apperrors.StorageFailure(fmt.Errorf("no such column %q", req.Metric), "aggregate %s", req.Table)
	}
	groupIdx := -1
	if req.Grouped() {
		if groupIdx = index(t.schema, req.GroupBy); groupIdx < 0 {
			return nil, apperrors.StorageFailure(fmt.Errorf("no such column %q", req.GroupBy), "aggregate %s", req.Table)
		}
	}

	var out []aggregation.Row
	for i, period := range req.Periods {
		groups := make(map[string][]decimal.Decimal)
		for _, row := range t.rows {
			if !period.Contains(row.Timestamp()) {
				continue
			}
			value, ok := aggregation.ToDecimal(row[metricIdx])
			if !ok {
				continue
			}
			key := ""
			if groupIdx >= 0 {
				key = groupKey(row[groupIdx])
			}
			groups[key] = append(groups[key], value)
		}

		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			out = append(out, aggregation.Row{
				Period:      i,
				PeriodLabel: period.Label(),
				Value:       reducer.Reduce(groups[k]),
				Group:       k,
			})
		}
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// Rows returns a copy of a table's rows, for inspection in tests and dry runs.
func (s *Store) Rows(name string) []storage.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	out := make([]storage.Row, len(t.rows))
	copy(out, t.rows)
	return out
}

func index(schema storage.Schema, column string) int {
	for i, c := range schema {
		if c.Name == column {
			return i
		}
	}
	return -1
}

func equalNames(a, b storage.Schema) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

// groupKey renders a group value the way the SQL backends cast it to text.
func groupKey(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Duration:
		return strconv.FormatFloat(val.Seconds(), 'f', -1, 64)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
