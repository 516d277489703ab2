package projection

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	httperr "github.com/nwrousell/dashboard/internal/core/errors"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/query", s.HandleWeeklyHours)
	r.GET("/api/recent", s.HandleRecentHours)
	r.GET("/v1/aggregate", s.HandleAggregate)
}

// HandleWeeklyHours handles GET /api/query?week_start=YYYY-MM-DD.
// Without week_start it reports the current week.
func (s *Service) HandleWeeklyHours(c *gin.Context) {
	day := s.nowFn()
	if raw := c.Query("week_start"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, s.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid week_start, expected YYYY-MM-DD",
				Details:   err.Error(),
			})
			return
		}
		day = parsed
	}

	hours, err := s.WeeklyHours(c.Request.Context(), day)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, hours)
}

// HandleRecentHours handles GET /api/recent?days=N (default 7).
func (s *Service) HandleRecentHours(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid days, expected an integer",
				Details:   err.Error(),
			})
			return
		}
		days = n
	}

	hours, err := s.RecentHours(c.Request.Context(), days)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, hours)
}

// HandleAggregate handles GET /v1/aggregate.
// Query parameters: table, metric, kind, group_by, start, step, count
func (s *Service) HandleAggregate(c *gin.Context) {
	var req AggregateQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Aggregate(c.Request.Context(), req)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeQueryError(c *gin.Context, err error) {
	if errors.Is(err, httperr.ErrInvalidArgument) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidArgumentError,
			Message:   "Invalid aggregate query",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "Failed to query aggregates",
		Details:   err.Error(),
	})
}
