package aggregation

import (
	"github.com/shopspring/decimal"

	"github.com/nwrousell/dashboard/internal/core/timewindow"
)

// Kind names an aggregation function. The set is closed.
type Kind string

const (
	KindSum    Kind = "sum"
	KindMin    Kind = "min"
	KindMax    Kind = "max"
	KindMean   Kind = "mean"
	KindMedian Kind = "median"
)

// Request asks for one aggregate of Metric per period, optionally split by GroupBy.
type Request struct {
	Table   string              `json:"table"`
	Metric  string              `json:"metric"`
	Periods []timewindow.Window `json:"periods"`
	Kind    Kind                `json:"kind"`
	GroupBy string              `json:"group_by,omitempty"` // empty = no grouping
}

// Grouped reports whether the request splits results by a column.
func (r Request) Grouped() bool {
	return r.GroupBy != ""
}

// Row is one aggregate value for a (period, group) pair that had at least one
// matching source row. Pairs without data are absent from results, never zero.
type Row struct {
	Period      int             `json:"period"` // index into Request.Periods
	PeriodLabel string          `json:"period_label"`
	Value       decimal.Decimal `json:"value"`
	Group       string          `json:"group,omitempty"`
}
