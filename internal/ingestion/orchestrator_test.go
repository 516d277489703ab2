package ingestion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/segment"
	"github.com/nwrousell/dashboard/internal/core/storage"
	"github.com/nwrousell/dashboard/internal/core/storage/memory"
	"github.com/nwrousell/dashboard/internal/core/timewindow"
	"github.com/nwrousell/dashboard/internal/cursor"
	storagemocks "github.com/nwrousell/dashboard/internal/mocks/storage"
	"github.com/nwrousell/dashboard/internal/source"
)

var (
	epoch = time.Date(2026, 2, 1, 4, 0, 0, 0, time.UTC)
	now   = time.Date(2026, 2, 9, 18, 0, 0, 0, time.UTC)
)

var workoutSchema = storage.Schema{
	{Name: "timestamp", Type: storage.TypeTimestamp},
	{Name: "duration", Type: storage.TypeDuration},
	{Name: "volume_kg", Type: storage.TypeFloat},
}

type fakeRows struct {
	id    string
	rows  []storage.Row
	err   error
	since []*time.Time
}

func (f *fakeRows) ID() string              { return f.id }
func (f *fakeRows) Table() string           { return f.id }
func (f *fakeRows) Schema() storage.Schema  { return workoutSchema }
func (f *fakeRows) DefaultEpoch() time.Time { return time.Time{} }
func (f *fakeRows) FetchRows(_ context.Context, since *time.Time, _ time.Time) ([]storage.Row, error) {
	f.since = append(f.since, since)
	return f.rows, f.err
}

type fakeEvents struct {
	events  []segment.RawEvent
	err     error
	windows []timewindow.Window
}

func (f *fakeEvents) ID() string                  { return "computer_use" }
func (f *fakeEvents) Table() string               { return "computer_use" }
func (f *fakeEvents) Schema() storage.Schema      { return source.SegmentSchema }
func (f *fakeEvents) DefaultEpoch() time.Time     { return epoch }
func (f *fakeEvents) Categories() []string        { return []string{"x", "y"} }
func (f *fakeEvents) GapThreshold() time.Duration { return 5 * time.Second }
func (f *fakeEvents) FetchEvents(_ context.Context, w timewindow.Window) ([]segment.RawEvent, error) {
	f.windows = append(f.windows, w)
	return f.events, f.err
}

func ev(offset, dur time.Duration, cats ...string) segment.RawEvent {
	return segment.RawEvent{Timestamp: epoch.Add(offset), Duration: dur, Categories: cats}
}

type harness struct {
	store   *memory.Store
	cursor  *cursor.Cursor
	kv      *cursor.FileStore
	metrics *Metrics
	orch    *Orchestrator
}

func newHarness(t *testing.T, store storage.Store, sources ...source.Source) *harness {
	t.Helper()
	reg, err := source.NewRegistry(storage.NewCatalog(), sources...)
	require.NoError(t, err)

	kv := cursor.NewFileStore(filepath.Join(t.TempDir(), "cursors.json"))
	cur := cursor.New(kv).WithClock(func() time.Time { return now })
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	h := &harness{cursor: cur, kv: kv, metrics: metrics}
	if store == nil {
		h.store = memory.New()
		store = h.store
	}
	h.orch = NewOrchestrator(reg, store, cur, metrics)
	return h
}

func (h *harness) lastSynced(t *testing.T, id string) (time.Time, bool) {
	t.Helper()
	ts, ok, err := h.kv.Get(context.Background(), id)
	require.NoError(t, err)
	return ts, ok
}

func TestOrchestrator_RunSegmentsStoresAndAdvances(t *testing.T) {
	events := &fakeEvents{events: []segment.RawEvent{
		ev(0, 10*time.Second, "x"),
		ev(12*time.Second, 8*time.Second, "x", "y"),
		ev(60*time.Second, 10*time.Second, "y"),
	}}
	workouts := &fakeRows{id: "hevy_summary", rows: []storage.Row{
		{epoch.Add(time.Hour), time.Hour, 5400.5},
	}}
	h := newHarness(t, nil, events, workouts)

	report, err := h.orch.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.False(t, report.Failed())
	require.NoError(t, report.Err())
	require.Len(t, report.Results, 2)
	assert.NotEmpty(t, report.RunID)

	// First cycle starts at the source's default epoch.
	require.Len(t, events.windows, 1)
	assert.Equal(t, timewindow.Window{Start: epoch, End: now}, events.windows[0])
	// Zero epoch and no cursor means "from the beginning".
	require.Len(t, workouts.since, 1)
	assert.Nil(t, workouts.since[0])

	assert.Equal(t, []storage.Row{
		{epoch, 20 * time.Second, "x"},
		{epoch.Add(12 * time.Second), 8 * time.Second, "y"},
		{epoch.Add(60 * time.Second), 10 * time.Second, "y"},
	}, h.store.Rows("computer_use"))
	assert.Len(t, h.store.Rows("hevy_summary"), 1)
	assert.Equal(t, 3, report.Results[0].Rows)

	for _, id := range []string{"computer_use", "hevy_summary"} {
		last, ok := h.lastSynced(t, id)
		require.True(t, ok, id)
		assert.True(t, last.Equal(now), id)

		assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.cycles.WithLabelValues(id, outcomeSuccess)))
		assert.Equal(t, float64(now.Unix()), testutil.ToFloat64(h.metrics.lastSuccess.WithLabelValues(id)))
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.rowsWritten.WithLabelValues("computer_use")))

	// The next cycle resumes from the stored cursor.
	_, err = h.orch.Run(context.Background(), Options{Only: []string{"hevy_summary"}})
	require.NoError(t, err)
	require.Len(t, workouts.since, 2)
	require.NotNil(t, workouts.since[1])
	assert.True(t, workouts.since[1].Equal(now))
	assert.Len(t, events.windows, 1)
}

func TestOrchestrator_FailingSourceIsIsolated(t *testing.T) {
	broken := &fakeRows{id: "hevy_summary", err: errors.New("connection refused")}
	events := &fakeEvents{events: []segment.RawEvent{ev(0, time.Second, "x")}}
	h := newHarness(t, nil, broken, events)

	report, err := h.orch.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.True(t, report.Failed())

	require.ErrorIs(t, report.Results[0].Err, apperrors.ErrSourceFetchFailure)
	assert.NoError(t, report.Results[1].Err)
	assert.Contains(t, report.Err().Error(), "source hevy_summary")

	_, ok := h.lastSynced(t, "hevy_summary")
	assert.False(t, ok, "cursor must not advance for a failed source")
	_, ok = h.lastSynced(t, "computer_use")
	assert.True(t, ok)
	assert.Len(t, h.store.Rows("computer_use"), 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.cycles.WithLabelValues("hevy_summary", outcomeFailure)))
}

func TestOrchestrator_MalformedEventsFailOnlyThatSource(t *testing.T) {
	events := &fakeEvents{events: []segment.RawEvent{
		ev(10*time.Second, time.Second, "x"),
		ev(0, time.Second, "x"),
	}}
	h := newHarness(t, nil, events)

	report, err := h.orch.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.ErrorIs(t, report.Results[0].Err, apperrors.ErrMalformedInput)
	assert.Empty(t, h.store.Rows("computer_use"))

	_, ok := h.lastSynced(t, "computer_use")
	assert.False(t, ok)
}

func TestOrchestrator_BadRowShapeIsMalformedInput(t *testing.T) {
	workouts := &fakeRows{id: "hevy_summary", rows: []storage.Row{{epoch, "an hour", 1.0}}}
	h := newHarness(t, nil, workouts)

	report, err := h.orch.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.ErrorIs(t, report.Results[0].Err, apperrors.ErrMalformedInput)
}

func TestOrchestrator_InsertFailureKeepsCursor(t *testing.T) {
	store := storagemocks.NewStore(t)
	store.EXPECT().CreateTable(mock.Anything, "hevy_summary", workoutSchema).Return(nil)
	store.EXPECT().Insert(mock.Anything, "hevy_summary", workoutSchema, mock.Anything).
		Return(apperrors.StorageFailure(errors.New("disk full"), "insert into hevy_summary"))

	workouts := &fakeRows{id: "hevy_summary", rows: []storage.Row{{epoch, time.Hour, 1.0}}}
	h := newHarness(t, store, workouts)

	report, err := h.orch.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.ErrorIs(t, report.Results[0].Err, apperrors.ErrStorageFailure)

	_, ok := h.lastSynced(t, "hevy_summary")
	assert.False(t, ok)
}

func TestOrchestrator_DryRunWritesNothing(t *testing.T) {
	// A mock with no expectations fails the test on any storage call.
	store := storagemocks.NewStore(t)
	events := &fakeEvents{events: []segment.RawEvent{ev(0, time.Second, "x")}}
	h := newHarness(t, store, events)

	report, err := h.orch.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	require.False(t, report.Failed())
	assert.True(t, report.Results[0].DryRun)
	assert.Equal(t, 1, report.Results[0].Rows)

	_, ok := h.lastSynced(t, "computer_use")
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.cycles.WithLabelValues("computer_use", outcomeDryRun)))
}

func TestOrchestrator_OnlyUnknownSource(t *testing.T) {
	h := newHarness(t, nil, &fakeEvents{})

	_, err := h.orch.Run(context.Background(), Options{Only: []string{"strava"}})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestOrchestrator_SourceTimeoutBoundsFetch(t *testing.T) {
	var deadline time.Time
	blocking := &deadlineRows{fakeRows: fakeRows{id: "hevy_summary"}, seen: &deadline}
	h := newHarness(t, nil, blocking)

	report, err := h.orch.Run(context.Background(), Options{SourceTimeout: time.Minute})
	require.NoError(t, err)
	require.False(t, report.Failed())
	assert.False(t, deadline.IsZero())
}

type deadlineRows struct {
	fakeRows
	seen *time.Time
}

func (d *deadlineRows) FetchRows(ctx context.Context, since *time.Time, until time.Time) ([]storage.Row, error) {
	*d.seen, _ = ctx.Deadline()
	return d.fakeRows.FetchRows(ctx, since, until)
}

func TestOrchestrator_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	broken := &fakeRows{id: "hevy_summary", err: errors.New("timeout")}
	h := newHarness(t, nil, broken)
	h.orch.WithTracer(tp.Tracer("test"))

	_, err := h.orch.Run(context.Background(), Options{})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ingest.source", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}

func TestNewMetrics_RegisterTwiceSharesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	second.observe(Result{SourceID: "computer_use", Rows: 2, Window: timewindow.Window{End: now}})
	assert.Equal(t, 2.0, testutil.ToFloat64(first.rowsWritten.WithLabelValues("computer_use")))
}
