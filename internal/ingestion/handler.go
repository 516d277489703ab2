package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	httperr "github.com/nwrousell/dashboard/internal/core/errors"
)

const (
	msgRunInProgress = "An ingestion run is already in progress"
	msgInvalidDryRun = "dry_run must be a boolean"
)

type resultResponse struct {
	SourceID    string    `json:"source_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Rows        int       `json:"rows"`
	DryRun      bool      `json:"dry_run,omitempty"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Code        string    `json:"code,omitempty"`
	Error       string    `json:"error,omitempty"`
}

type reportResponse struct {
	RunID   string           `json:"run_id"`
	Failed  bool             `json:"failed"`
	Results []resultResponse `json:"results"`
}

// IngestHandler runs one ingestion pass and returns its report.
//
// Query parameters: only=id1,id2 restricts the sources; dry_run=true skips
// writes and cursor updates.
func (s *Service) IngestHandler(c *gin.Context) {
	opts := s.defaults
	if only := strings.TrimSpace(c.Query("only")); only != "" {
		opts.Only = splitIDs(only)
	}
	if raw := c.Query("dry_run"); raw != "" {
		dry, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidArgumentError,
				Message:   msgInvalidDryRun,
				Details:   map[string]string{"dry_run": raw},
			})
			return
		}
		opts.DryRun = dry
	}

	if !s.running.TryLock() {
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpConflictError,
			Message:   msgRunInProgress,
		})
		return
	}
	defer s.running.Unlock()

	// The run outlives a disconnecting client so no source stops half way.
	report, err := s.orch.Run(context.WithoutCancel(c.Request.Context()), opts)
	if err != nil {
		status := http.StatusInternalServerError
		errType := httperr.HttpInternalError
		if errors.Is(err, httperr.ErrInvalidArgument) {
			status = http.StatusBadRequest
			errType = httperr.HttpInvalidArgumentError
		}
		slog.Warn("[Ingestion] Run rejected", "error", err)
		c.JSON(status, httperr.ErrorResponse{ErrorType: errType, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, toResponse(report))
}

func toResponse(report Report) reportResponse {
	out := reportResponse{
		RunID:   report.RunID,
		Failed:  report.Failed(),
		Results: make([]resultResponse, 0, len(report.Results)),
	}
	for _, r := range report.Results {
		res := resultResponse{
			SourceID:    r.SourceID,
			WindowStart: r.Window.Start,
			WindowEnd:   r.Window.End,
			Rows:        r.Rows,
			DryRun:      r.DryRun,
			ElapsedMs:   r.Elapsed.Milliseconds(),
		}
		if r.Err != nil {
			res.Code = string(httperr.CodeOf(r.Err))
			res.Error = r.Err.Error()
		}
		out.Results = append(out.Results, res)
	}
	return out
}

// splitIDs parses a comma separated id list, dropping blanks.
func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
