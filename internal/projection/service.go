package projection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nwrousell/dashboard/internal/core/aggregation"
	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/timewindow"
	"github.com/nwrousell/dashboard/internal/query"
)

const (
	usageTable     = "computer_use"
	usageMetric    = "duration"
	usageGroup     = "category"
	maxDailyWindow = 366

	// sharedQueryTimeout bounds a collapsed query, which no longer follows any
	// single caller's context.
	sharedQueryTimeout = 30 * time.Second
)

// Service implements the read side on top of the aggregation planner.
// Identical concurrent queries share one storage round-trip.
type Service struct {
	planner   *query.Planner
	group     singleflight.Group
	loc       *time.Location
	dayOffset time.Duration
	nowFn     func() time.Time

	queryTimeout time.Duration
}

// NewService creates a projection service. Days are computed in loc and
// start dayOffset after midnight for the rolling view.
func NewService(planner *query.Planner, loc *time.Location, dayOffset time.Duration) *Service {
	if planner == nil {
		panic("projection: planner must not be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		planner:   planner,
		loc:       loc,
		dayOffset: dayOffset,
		nowFn:     time.Now,

		queryTimeout: sharedQueryTimeout,
	}
}

// WeeklyHours returns hours per category for each of the seven days of the
// week containing day.
func (s *Service) WeeklyHours(ctx context.Context, day time.Time) (DailyHours, error) {
	monday := timewindow.StartOfWeek(day.In(s.loc))
	return s.dailyHours(ctx, timewindow.Periods(monday, 24*time.Hour, 7))
}

// RecentHours returns hours per category for the last n days, today included.
func (s *Service) RecentHours(ctx context.Context, n int) (DailyHours, error) {
	if n <= 0 || n > maxDailyWindow {
		return nil, apperrors.InvalidArgumentf("days must be 1-%d, got %d", maxDailyWindow, n)
	}
	return s.dailyHours(ctx, timewindow.LastNDays(s.nowFn().In(s.loc), n, s.dayOffset))
}

func (s *Service) dailyHours(ctx context.Context, periods []timewindow.Window) (DailyHours, error) {
	rows, err := s.aggregate(ctx, aggregation.Request{
		Table:   usageTable,
		Metric:  usageMetric,
		Periods: periods,
		Kind:    aggregation.KindSum,
		GroupBy: usageGroup,
	})
	if err != nil {
		return nil, err
	}
	return rollupDaily(periods, rows), nil
}

// Aggregate answers a generic windowed aggregation.
func (s *Service) Aggregate(ctx context.Context, req AggregateQueryRequest) (*AggregateQueryResponse, error) {
	step, err := timewindow.ParseSpan(req.Step)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "invalid step")
	}
	kind := aggregation.Kind(strings.ToLower(req.Kind))

	rows, err := s.aggregate(ctx, aggregation.Request{
		Table:   req.Table,
		Metric:  req.Metric,
		Periods: timewindow.Periods(req.Start, step, req.Count),
		Kind:    kind,
		GroupBy: req.GroupBy,
	})
	if err != nil {
		return nil, err
	}

	return &AggregateQueryResponse{
		Table:   req.Table,
		Metric:  req.Metric,
		Kind:    kind,
		GroupBy: req.GroupBy,
		Start:   req.Start,
		Step:    req.Step,
		Count:   req.Count,
		Rows:    rows,
	}, nil
}

// aggregate collapses identical in-flight requests. The shared call runs
// detached from the caller that started it, bounded by queryTimeout; each
// caller returns as soon as its own ctx is done.
func (s *Service) aggregate(ctx context.Context, req aggregation.Request) ([]aggregation.Row, error) {
	ch := s.group.DoChan(requestKey(req), func() (interface{}, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.queryTimeout)
		defer cancel()
		return s.planner.Aggregate(sharedCtx, req)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]aggregation.Row), nil
	}
}

func requestKey(req aggregation.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s|", req.Table, req.Metric, req.Kind, req.GroupBy)
	for _, p := range req.Periods {
		fmt.Fprintf(&b, "%d,%d;", p.Start.UnixNano(), p.End.UnixNano())
	}
	return b.String()
}
