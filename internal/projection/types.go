package projection

import (
	"time"

	"github.com/nwrousell/dashboard/internal/core/aggregation"
)

// AggregateQueryRequest represents the query parameters of GET /v1/aggregate.
type AggregateQueryRequest struct {
	Table   string    `form:"table" binding:"required"`
	Metric  string    `form:"metric" binding:"required"`
	Kind    string    `form:"kind" binding:"required"`
	GroupBy string    `form:"group_by"`
	Start   time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Step    string    `form:"step" binding:"required"` // e.g. 1h, 1d, 7d
	Count   int       `form:"count" binding:"required,min=1,max=1000"`
}

// AggregateQueryResponse echoes the request and carries the sparse rows.
type AggregateQueryResponse struct {
	Table   string            `json:"table"`
	Metric  string            `json:"metric"`
	Kind    aggregation.Kind  `json:"kind"`
	GroupBy string            `json:"group_by,omitempty"`
	Start   time.Time         `json:"start"`
	Step    string            `json:"step"`
	Count   int               `json:"count"`
	Rows    []aggregation.Row `json:"rows"`
}

// DailyHours maps YYYY-MM-DD → category → hours. Days and categories with
// no recorded time are absent.
type DailyHours map[string]map[string]float64
