// Package activitywatch pulls window events from a local ActivityWatch server
// and labels them with the configured category rules.
package activitywatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nwrousell/dashboard/internal/core/timewindow"
)

const queryPath = "/api/0/query/"

// Event is one entry of an ActivityWatch query result.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration"` // seconds
	Data      EventData `json:"data"`
}

type EventData struct {
	App   string `json:"app"`
	Title string `json:"title"`
}

type queryRequest struct {
	TimePeriods []string `json:"timeperiods"`
	Query       []string `json:"query"`
}

// Client talks to the ActivityWatch REST query endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// buildQuery returns the query program that keeps only window activity that
// overlaps a not-afk period on hostname.
func buildQuery(hostname string) []string {
	return []string{
		fmt.Sprintf(`window = flood(query_bucket(%q));`, "aw-watcher-window_"+hostname),
		fmt.Sprintf(`not_afk = flood(query_bucket(%q));`, "aw-watcher-afk_"+hostname),
		`not_afk = filter_keyvals(not_afk, "status", ["not-afk"]);`,
		`events = filter_period_intersect(window, not_afk);`,
		`events = sort_by_timestamp(events);`,
		`RETURN = events;`,
	}
}

// Query runs the active-window query over w for hostname.
func (c *Client) Query(ctx context.Context, hostname string, w timewindow.Window) ([]Event, error) {
	body, err := json.Marshal(queryRequest{
		TimePeriods: []string{w.Start.Format(time.RFC3339Nano) + "/" + w.End.Format(time.RFC3339Nano)},
		Query:       buildQuery(hostname),
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+queryPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query activitywatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("query activitywatch: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	// One result list per time period; we always send exactly one.
	var results [][]Event
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode activitywatch response: %w", err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("activitywatch returned %d result sets, expected 1", len(results))
	}
	return results[0], nil
}
