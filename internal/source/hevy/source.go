// Package hevy pages through a user's workouts on the Hevy web API.
package hevy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/storage"
	"github.com/nwrousell/dashboard/internal/source"
)

// ID is both the source id and its table name.
const ID = "hevy_summary"

// MaxPageSize is the largest limit the workouts endpoint accepts.
const MaxPageSize = 5

var schema = storage.Schema{
	{Name: storage.TimestampColumn, Type: storage.TypeTimestamp},
	{Name: "duration", Type: storage.TypeDuration},
	{Name: "name", Type: storage.TypeText},
	{Name: "description", Type: storage.TypeText},
	{Name: "volume_kg", Type: storage.TypeFloat},
}

type Options struct {
	BaseURL   string
	Username  string
	APIKey    string
	AuthToken string
	PageSize  int
}

// Workout is the subset of a workout object that ends up in the table.
type Workout struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	StartTime         int64   `json:"start_time"` // unix seconds
	EndTime           int64   `json:"end_time"`
	EstimatedVolumeKg float64 `json:"estimated_volume_kg"`
}

type workoutPage struct {
	Workouts []Workout `json:"workouts"`
}

// Source is the workout summary row source.
type Source struct {
	httpClient *http.Client
	opts       Options
}

var _ source.RowSource = (*Source)(nil)

func New(httpClient *http.Client, opts Options) (*Source, error) {
	if opts.Username == "" {
		return nil, apperrors.PreconditionFailuref("hevy: username is required")
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		return nil, apperrors.InvalidArgumentf("hevy: page size must be 1-%d, got %d", MaxPageSize, opts.PageSize)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Source{httpClient: httpClient, opts: opts}, nil
}

func (s *Source) ID() string             { return ID }
func (s *Source) Table() string          { return ID }
func (s *Source) Schema() storage.Schema { return schema }

// DefaultEpoch is the zero time: the first fetch walks the whole history.
func (s *Source) DefaultEpoch() time.Time { return time.Time{} }

// FetchRows walks pages newest first and stops at the first workout that
// ended before since. Workouts ending after until are left for the next cycle.
func (s *Source) FetchRows(ctx context.Context, since *time.Time, until time.Time) ([]storage.Row, error) {
	var rows []storage.Row
	offset := 0
	pages := 0
	for {
		page, err := s.fetchPage(ctx, offset)
		if err != nil {
			return nil, apperrors.SourceFetchFailure(err, "hevy user %s offset %d", s.opts.Username, offset)
		}
		pages++
		if len(page) == 0 {
			break
		}

		for _, w := range page {
			end := time.Unix(w.EndTime, 0)
			if since != nil && end.Before(*since) {
				slog.Debug("[Hevy] Reached previously synced workouts", "pages", pages, "rows", len(rows))
				return rows, nil
			}
			offset++
			if end.After(until) {
				continue
			}
			rows = append(rows, workoutRow(w))
		}
	}

	slog.Debug("[Hevy] Reached end of history", "pages", pages, "rows", len(rows))
	return rows, nil
}

func workoutRow(w Workout) storage.Row {
	start := time.Unix(w.StartTime, 0)
	return storage.Row{
		start,
		time.Unix(w.EndTime, 0).Sub(start),
		w.Name,
		w.Description,
		w.EstimatedVolumeKg,
	}
}

func (s *Source) fetchPage(ctx context.Context, offset int) ([]Workout, error) {
	q := url.Values{}
	q.Set("username", s.opts.Username)
	q.Set("limit", strconv.Itoa(s.opts.PageSize))
	q.Set("offset", strconv.Itoa(offset))
	endpoint := s.opts.BaseURL + "/user_workouts_paged?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.opts.APIKey)
	if s.opts.AuthToken != "" {
		req.Header.Set("Auth-Token", s.opts.AuthToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get workouts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("get workouts: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var page workoutPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode workouts: %w", err)
	}
	return page.Workouts, nil
}
