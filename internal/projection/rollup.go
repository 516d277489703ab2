package projection

import (
	"github.com/shopspring/decimal"

	"github.com/nwrousell/dashboard/internal/core/aggregation"
	"github.com/nwrousell/dashboard/internal/core/timewindow"
)

var secondsPerHour = decimal.NewFromInt(3600)

// rollupDaily turns per-day summed seconds grouped by category into hours,
// rounded to two decimals and keyed by each period's calendar day.
func rollupDaily(periods []timewindow.Window, rows []aggregation.Row) DailyHours {
	out := make(DailyHours)
	for _, row := range rows {
		if row.Period < 0 || row.Period >= len(periods) {
			continue
		}
		day := periods[row.Period].Day()
		if out[day] == nil {
			out[day] = make(map[string]float64)
		}
		hours := row.Value.Div(secondsPerHour).Round(2)
		out[day][row.Group] = hours.InexactFloat64()
	}
	return out
}
