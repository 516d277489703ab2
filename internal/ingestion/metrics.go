package ingestion

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeDryRun  = "dry_run"
)

// Metrics records per-source ingestion cycles.
type Metrics struct {
	cycles      *prometheus.CounterVec
	rowsWritten *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// NewMetrics builds the collectors and registers them on reg. A nil reg
// keeps them unregistered, which is what tests and one-shot runs want.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "ingest",
			Name:      "source_cycles_total",
			Help:      "Source ingestion cycles by outcome",
		}, []string{"source", "outcome"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "ingest",
			Name:      "rows_written_total",
			Help:      "Rows committed to the canonical tables",
		}, []string{"source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dashboard",
			Subsystem: "ingest",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one source cycle",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Subsystem: "ingest",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful cycle",
		}, []string{"source"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.cycles, err = register(reg, m.cycles); err != nil {
		return nil, err
	}
	if m.rowsWritten, err = register(reg, m.rowsWritten); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.lastSuccess, err = register(reg, m.lastSuccess); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register ingestion metrics: %w", err)
	}
	return c, nil
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	switch {
	case r.Err != nil:
		outcome = outcomeFailure
	case r.DryRun:
		outcome = outcomeDryRun
	}
	m.cycles.WithLabelValues(r.SourceID, outcome).Inc()
	m.duration.WithLabelValues(r.SourceID).Observe(r.Elapsed.Seconds())

	if outcome == outcomeSuccess {
		m.rowsWritten.WithLabelValues(r.SourceID).Add(float64(r.Rows))
		m.lastSuccess.WithLabelValues(r.SourceID).Set(float64(r.Window.End.Unix()))
	}
}
