package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/nwrousell/dashboard/internal/core/timewindow"
)

// Result is the outcome of one source cycle.
type Result struct {
	SourceID string            `json:"source_id"`
	Window   timewindow.Window `json:"window"`
	Rows     int               `json:"rows"`
	DryRun   bool              `json:"dry_run,omitempty"`
	Elapsed  time.Duration     `json:"elapsed_ns"`
	Err      error             `json:"-"`
}

// Report summarizes one ingestion run.
type Report struct {
	RunID   string   `json:"run_id"`
	Results []Result `json:"results"`
}

// Failed reports whether any source cycle failed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// Err joins every per-source failure, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", res.SourceID, res.Err))
		}
	}
	return errors.Join(errs...)
}
