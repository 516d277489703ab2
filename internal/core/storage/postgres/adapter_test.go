package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nwrousell/dashboard/internal/core/aggregation"
	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/storage"
	"github.com/nwrousell/dashboard/internal/core/timewindow"
)

var usageSchema = storage.Schema{
	{Name: "timestamp", Type: storage.TypeTimestamp},
	{Name: "duration", Type: storage.TypeDuration},
	{Name: "category", Type: storage.TypeText},
}

var monday = time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

func driverArgs(args []any) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func TestBuildAggregateQuery_GroupedSum(t *testing.T) {
	periods := timewindow.Periods(monday, 24*time.Hour, 2)

	query, args, err := BuildAggregateQuery(aggregation.Request{
		Table:   "computer_use",
		Metric:  "duration",
		Periods: periods,
		Kind:    aggregation.KindSum,
		GroupBy: "category",
	})
	require.NoError(t, err)

	require.Equal(t,
		`SELECT period_idx, period_label, value, grp FROM (`+
			`(SELECT 0 AS period_idx, $3::text AS period_label, (SUM("duration"))::text AS value, "category"::text AS grp FROM "computer_use" WHERE "timestamp" BETWEEN $1 AND $2 GROUP BY "category" HAVING COUNT("duration") > 0)`+
			` UNION ALL `+
			`(SELECT 1 AS period_idx, $6::text AS period_label, (SUM("duration"))::text AS value, "category"::text AS grp FROM "computer_use" WHERE "timestamp" BETWEEN $4 AND $5 GROUP BY "category" HAVING COUNT("duration") > 0)`+
			`) AS periods ORDER BY period_idx`,
		query)
	require.Equal(t, []any{
		periods[0].Start, periods[0].End, periods[0].Label(),
		periods[1].Start, periods[1].End, periods[1].Label(),
	}, args)
}

func TestBuildAggregateQuery_Kinds(t *testing.T) {
	tests := []struct {
		kind aggregation.Kind
		want string
	}{
		{kind: aggregation.KindMin, want: `(MIN("volume_kg"))::text`},
		{kind: aggregation.KindMax, want: `(MAX("volume_kg"))::text`},
		{kind: aggregation.KindMean, want: `(AVG("volume_kg"))::text`},
		{kind: aggregation.KindMedian, want: `(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY "volume_kg"))::text`},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			query, args, err := BuildAggregateQuery(aggregation.Request{
				Table:   "hevy_summary",
				Metric:  "volume_kg",
				Periods: timewindow.Periods(monday, 7*24*time.Hour, 1),
				Kind:    tc.kind,
			})
			require.NoError(t, err)
			require.Contains(t, query, tc.want)
			require.Contains(t, query, "NULL::text AS grp")
			require.NotContains(t, query, "GROUP BY")
			require.Contains(t, query, `HAVING COUNT("volume_kg") > 0`)
			require.Len(t, args, 3)
		})
	}
}

func TestBuildAggregateQuery_RejectsBadInput(t *testing.T) {
	base := aggregation.Request{
		Table:   "computer_use",
		Metric:  "duration",
		Periods: timewindow.Periods(monday, time.Hour, 1),
		Kind:    aggregation.KindSum,
	}

	tests := []struct {
		name   string
		mutate func(r *aggregation.Request)
	}{
		{name: "kind", mutate: func(r *aggregation.Request) { r.Kind = "stddev" }},
		{name: "table", mutate: func(r *aggregation.Request) { r.Table = `x"; DROP TABLE y; --` }},
		{name: "metric", mutate: func(r *aggregation.Request) { r.Metric = "duration)" }},
		{name: "group", mutate: func(r *aggregation.Request) { r.GroupBy = "Category" }},
		{name: "no periods", mutate: func(r *aggregation.Request) { r.Periods = nil }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, _, err := BuildAggregateQuery(req)
			require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		})
	}
}

func TestAdapter_AggregateSingleRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	req := aggregation.Request{
		Table:   "computer_use",
		Metric:  "duration",
		Periods: timewindow.Periods(monday, 24*time.Hour, 2),
		Kind:    aggregation.KindSum,
		GroupBy: "category",
	}
	query, args, err := BuildAggregateQuery(req)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(driverArgs(args)...).
		WillReturnRows(sqlmock.NewRows([]string{"period_idx", "period_label", "value", "grp"}).
			AddRow(0, req.Periods[0].Label(), "30", "x").
			AddRow(0, req.Periods[0].Label(), "10", "y").
			AddRow(0, req.Periods[0].Label(), nil, "z").
			AddRow(1, req.Periods[1].Label(), "5", "x"))

	rows, err := NewAdapterFromDB(db).Aggregate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, aggregation.Row{Period: 0, PeriodLabel: req.Periods[0].Label(), Value: decimal.NewFromInt(30), Group: "x"}, rows[0])
	require.Equal(t, "y", rows[1].Group)
	require.Equal(t, 1, rows[2].Period)
	require.True(t, decimal.NewFromInt(5).Equal(rows[2].Value))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_AggregateQueryErrorIsStorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	req := aggregation.Request{
		Table:   "computer_use",
		Metric:  "duration",
		Periods: timewindow.Periods(monday, 24*time.Hour, 1),
		Kind:    aggregation.KindMedian,
	}
	query, _, err := BuildAggregateQuery(req)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnError(errors.New("relation does not exist"))

	_, err = NewAdapterFromDB(db).Aggregate(context.Background(), req)
	require.ErrorIs(t, err, apperrors.ErrStorageFailure)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_InsertCommitsAllRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := []storage.Row{
		{monday.Add(10 * time.Hour), 30 * time.Second, "x"},
		{monday.Add(11 * time.Hour), 90 * time.Second, nil},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(
		`INSERT INTO "computer_use" ("timestamp", "duration", "category") VALUES ($1, $2, $3)`))
	prep.ExpectExec().WithArgs(rows[0][0], 30.0, "x").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(rows[1][0], 90.0, nil).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewAdapterFromDB(db).Insert(context.Background(), "computer_use", usageSchema, rows)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_InsertRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := []storage.Row{
		{monday, 30 * time.Second, "x"},
		{monday.Add(time.Minute), 30 * time.Second, "y"},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(
		`INSERT INTO "computer_use" ("timestamp", "duration", "category") VALUES ($1, $2, $3)`))
	prep.ExpectExec().WithArgs(rows[0][0], 30.0, "x").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(rows[1][0], 30.0, "y").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewAdapterFromDB(db).Insert(context.Background(), "computer_use", usageSchema, rows)
	require.ErrorIs(t, err, apperrors.ErrStorageFailure)
	require.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_InsertRejectsBadRowBeforeBegin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewAdapterFromDB(db).Insert(context.Background(), "computer_use", usageSchema, []storage.Row{
		{monday, "thirty", "x"},
	})
	require.ErrorIs(t, err, apperrors.ErrStorageFailure)
	require.NotErrorIs(t, err, apperrors.ErrInvalidArgument)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CreateTable(t *testing.T) {
	ddl := `CREATE TABLE IF NOT EXISTS "computer_use" ("timestamp" TIMESTAMPTZ NOT NULL, "duration" DOUBLE PRECISION, "category" TEXT)`
	index := `CREATE INDEX IF NOT EXISTS "computer_use_timestamp_idx" ON "computer_use" ("timestamp")`

	tests := []struct {
		name    string
		columns []string
		wantErr error
	}{
		{name: "created or matching", columns: []string{"timestamp", "duration", "category"}},
		{name: "existing table differs", columns: []string{"timestamp", "duration"}, wantErr: apperrors.ErrPreconditionFailure},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(regexp.QuoteMeta(ddl)).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec(regexp.QuoteMeta(index)).WillReturnResult(sqlmock.NewResult(0, 0))
			result := sqlmock.NewRows([]string{"column_name"})
			for _, c := range tc.columns {
				result.AddRow(c)
			}
			mock.ExpectQuery(regexp.QuoteMeta(queryTableColumns)).WithArgs("computer_use").WillReturnRows(result)

			err = NewAdapterFromDB(db).CreateTable(context.Background(), "computer_use", usageSchema)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_CreateTableRejectsSchemaWithoutTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewAdapterFromDB(db).CreateTable(context.Background(), "bad", storage.Schema{
		{Name: "value", Type: storage.TypeFloat},
	})
	require.ErrorIs(t, err, apperrors.ErrPreconditionFailure)
	require.NoError(t, mock.ExpectationsWereMet())
}
