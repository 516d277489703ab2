package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/nwrousell/dashboard/internal/core/aggregation"
	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/storage"
)

const (
	queryTableColumns = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name = $1
		ORDER BY ordinal_position
	`

	queryGetCursor = `SELECT last_synced FROM sync_cursors WHERE source_id = $1`

	queryUpsertCursor = `
		INSERT INTO sync_cursors (source_id, last_synced, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id) DO UPDATE SET
			last_synced = EXCLUDED.last_synced,
			updated_at  = EXCLUDED.updated_at
	`

	queryListCursors = `SELECT source_id, last_synced FROM sync_cursors ORDER BY source_id ASC`
)

var columnTypes = map[storage.ColumnType]string{
	storage.TypeTimestamp: "TIMESTAMPTZ",
	storage.TypeDuration:  "DOUBLE PRECISION", // seconds
	storage.TypeText:      "TEXT",
	storage.TypeFloat:     "DOUBLE PRECISION",
	storage.TypeInteger:   "BIGINT",
}

// aggregateExprs maps each kind to an SQL aggregate over one quoted column.
var aggregateExprs = map[aggregation.Kind]string{
	aggregation.KindSum:    "SUM(%s)",
	aggregation.KindMin:    "MIN(%s)",
	aggregation.KindMax:    "MAX(%s)",
	aggregation.KindMean:   "AVG(%s)",
	aggregation.KindMedian: "PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %s)",
}

// quoteIdent double-quotes an identifier that already passed the allow-list.
func quoteIdent(name string) (string, error) {
	if !storage.ValidIdentifier(name) {
		return "", apperrors.InvalidArgumentf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

func buildCreateTable(table string, schema storage.Schema) (string, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return "", err
	}

	cols := make([]string, 0, len(schema))
	for i, c := range schema {
		name, err := quoteIdent(c.Name)
		if err != nil {
			return "", err
		}
		sqlType, ok := columnTypes[c.Type]
		if !ok {
			return "", apperrors.InvalidArgumentf("column %q: unknown type %q", c.Name, c.Type)
		}
		col := name + " " + sqlType
		if i == 0 {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t, strings.Join(cols, ", ")), nil
}

func buildCreateIndex(table string) string {
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "%s_timestamp_idx" ON "%s" ("timestamp")`, table, table)
}

func buildInsert(table string, schema storage.Schema) (string, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return "", err
	}

	cols := make([]string, len(schema))
	params := make([]string, len(schema))
	for i, c := range schema {
		name, err := quoteIdent(c.Name)
		if err != nil {
			return "", err
		}
		cols[i] = name
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t, strings.Join(cols, ", "), strings.Join(params, ", ")), nil
}

// sqlValue converts a row value to what lib/pq expects. Durations are stored as seconds.
func sqlValue(v any) any {
	if d, ok := v.(time.Duration); ok {
		return d.Seconds()
	}
	return v
}

// BuildAggregateQuery compiles req into one statement: a parenthesised
// sub-select per period joined with UNION ALL and ordered by period index.
//
// Time bounds and period labels travel as parameters. Identifiers are
// re-checked and quoted here even though the planner has already matched
// them against the catalog. Each sub-select keeps only groups with at least
// one non-NULL metric value, so empty (period, group) pairs yield no row.
func BuildAggregateQuery(req aggregation.Request) (string, []any, error) {
	exprFmt, ok := aggregateExprs[req.Kind]
	if !ok {
		return "", nil, apperrors.InvalidArgumentf("unsupported aggregation kind %q", req.Kind)
	}
	if len(req.Periods) == 0 {
		return "", nil, apperrors.InvalidArgumentf("at least one period is required")
	}

	table, err := quoteIdent(req.Table)
	if err != nil {
		return "", nil, err
	}
	metric, err := quoteIdent(req.Metric)
	if err != nil {
		return "", nil, err
	}
	ts, _ := quoteIdent(storage.TimestampColumn)

	groupSelect, groupClause := "NULL::text", ""
	if req.Grouped() {
		group, err := quoteIdent(req.GroupBy)
		if err != nil {
			return "", nil, err
		}
		groupSelect = group + "::text"
		groupClause = " GROUP BY " + group
	}

	agg := fmt.Sprintf(exprFmt, metric)
	args := make([]any, 0, 3*len(req.Periods))

	var b strings.Builder
	b.WriteString("SELECT period_idx, period_label, value, grp FROM (")
	for i, p := range req.Periods {
		if i > 0 {
			b.WriteString(" UNION ALL ")
		}
		n := len(args)
		args = append(args, p.Start, p.End, p.Label())
		fmt.Fprintf(&b,
			"(SELECT %d AS period_idx, $%d::text AS period_label, (%s)::text AS value, %s AS grp FROM %s WHERE %s BETWEEN $%d AND $%d%s HAVING COUNT(%s) > 0)",
			i, n+3, agg, groupSelect, table, ts, n+1, n+2, groupClause, metric,
		)
	}
	b.WriteString(") AS periods ORDER BY period_idx")

	return b.String(), args, nil
}
