// Package ingestion runs per-source fetch → segment → store → advance cycles.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/segment"
	"github.com/nwrousell/dashboard/internal/core/storage"
	"github.com/nwrousell/dashboard/internal/core/timewindow"
	"github.com/nwrousell/dashboard/internal/cursor"
	"github.com/nwrousell/dashboard/internal/source"
)

const tracerName = "github.com/nwrousell/dashboard/internal/ingestion"

// Options tune a single Run.
type Options struct {
	// DryRun fetches and segments but neither writes rows nor advances cursors.
	DryRun bool
	// Only restricts the run to these source ids. Empty means every source.
	Only []string
	// SourceTimeout bounds each source cycle. Zero means no bound.
	SourceTimeout time.Duration
}

// Orchestrator drives ingestion for every registered source.
// A Run is sequential; a failing source never stops the others.
type Orchestrator struct {
	registry *source.Registry
	store    storage.Store
	cursor   *cursor.Cursor
	metrics  *Metrics
	tracer   trace.Tracer
}

func NewOrchestrator(registry *source.Registry, store storage.Store, cur *cursor.Cursor, metrics *Metrics) *Orchestrator {
	if registry == nil {
		panic("ingestion: registry must not be nil")
	}
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if cur == nil {
		panic("ingestion: cursor must not be nil")
	}
	return &Orchestrator{
		registry: registry,
		store:    store,
		cursor:   cur,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

// WithTracer replaces the global tracer. Intended for tests.
func (o *Orchestrator) WithTracer(t trace.Tracer) *Orchestrator {
	o.tracer = t
	return o
}

// Select resolves opts.Only against the registry, keeping run order.
func (o *Orchestrator) Select(only []string) ([]source.Source, error) {
	if len(only) == 0 {
		return o.registry.Sources(), nil
	}
	wanted := make(map[string]bool, len(only))
	for _, id := range only {
		if _, ok := o.registry.Get(id); !ok {
			return nil, apperrors.InvalidArgumentf("unknown source %q (registered: %v)", id, o.registry.IDs())
		}
		wanted[id] = true
	}
	var out []source.Source
	for _, s := range o.registry.Sources() {
		if wanted[s.ID()] {
			out = append(out, s)
		}
	}
	return out, nil
}

// Run performs one ingestion pass. The error is non-nil only when the run
// could not start; per-source failures are in the Report.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Report, error) {
	sources, err := o.Select(opts.Only)
	if err != nil {
		return Report{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	report := Report{RunID: id.String()}

	slog.Info("[Orchestrator] Starting ingestion run",
		"run_id", report.RunID,
		"sources", len(sources),
		"dry_run", opts.DryRun,
	)

	for _, src := range sources {
		res := o.runSource(ctx, report.RunID, src, opts)
		o.metrics.observe(res)
		report.Results = append(report.Results, res)
	}

	slog.Info("[Orchestrator] Ingestion run finished",
		"run_id", report.RunID,
		"failed", report.Failed(),
	)
	return report, nil
}

func (o *Orchestrator) runSource(ctx context.Context, runID string, src source.Source, opts Options) Result {
	started := time.Now()
	res := Result{SourceID: src.ID(), DryRun: opts.DryRun}
	log := slog.With("run_id", runID, "source", src.ID())

	ctx, span := o.tracer.Start(ctx, "ingest.source", trace.WithAttributes(
		attribute.String("source.id", src.ID()),
		attribute.String("run.id", runID),
		attribute.Bool("dry_run", opts.DryRun),
	))
	defer span.End()

	if opts.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.SourceTimeout)
		defer cancel()
	}

	fail := func(err error) Result {
		res.Err = err
		res.Elapsed = time.Since(started)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("[Orchestrator] Source cycle failed",
			"error", err,
			"code", apperrors.CodeOf(err),
			"window_start", res.Window.Start,
			"window_end", res.Window.End,
		)
		return res
	}

	window, err := o.cursor.WindowFor(ctx, src.ID(), src.DefaultEpoch())
	if err != nil {
		return fail(apperrors.StorageFailure(err, "resolve fetch window"))
	}
	res.Window = window

	if !opts.DryRun {
		if err := o.store.CreateTable(ctx, src.Table(), src.Schema()); err != nil {
			return fail(err)
		}
	}

	rows, err := fetch(ctx, src, window)
	if err != nil {
		return fail(err)
	}
	res.Rows = len(rows)
	span.SetAttributes(attribute.Int("rows", len(rows)))

	if opts.DryRun {
		res.Elapsed = time.Since(started)
		log.Info("[Orchestrator] Dry run, skipping write",
			"rows", len(rows),
			"window_start", window.Start,
			"window_end", window.End,
		)
		return res
	}

	if err := o.store.Insert(ctx, src.Table(), src.Schema(), rows); err != nil {
		return fail(err)
	}
	// Rows are committed; a failure here only means the window is fetched again.
	if err := o.cursor.Advance(ctx, src.ID(), window.End); err != nil {
		return fail(apperrors.StorageFailure(err, "advance cursor"))
	}

	res.Elapsed = time.Since(started)
	log.Info("[Orchestrator] Source cycle complete",
		"rows", len(rows),
		"window_start", window.Start,
		"window_end", window.End,
		"elapsed", res.Elapsed,
	)
	return res
}

// fetch pulls rows for w, segmenting event sources, and checks them
// against the source's schema.
func fetch(ctx context.Context, src source.Source, w timewindow.Window) ([]storage.Row, error) {
	var rows []storage.Row

	switch s := src.(type) {
	case source.RowSource:
		var since *time.Time
		if !w.Start.IsZero() {
			start := w.Start
			since = &start
		}
		fetched, err := s.FetchRows(ctx, since, w.End)
		if err != nil {
			return nil, asFetchFailure(err, src.ID())
		}
		rows = fetched

	case source.EventSource:
		events, err := s.FetchEvents(ctx, w)
		if err != nil {
			return nil, asFetchFailure(err, src.ID())
		}
		segments, err := segment.SegmentByCategory(events, s.Categories(), s.GapThreshold())
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", src.ID(), err)
		}
		rows = source.SegmentRows(segments)

	default:
		return nil, apperrors.PreconditionFailuref("source %q fetches neither rows nor events", src.ID())
	}

	schema := src.Schema()
	for i, row := range rows {
		if err := schema.CheckRow(row); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeMalformedInput, err, "source %s row %d", src.ID(), i)
		}
	}
	return rows, nil
}

func asFetchFailure(err error, id string) error {
	if apperrors.CodeOf(err) != "" {
		return err
	}
	return apperrors.SourceFetchFailure(err, "fetch %s", id)
}
