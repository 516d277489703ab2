package aggregation

import (
	"time"

	"github.com/shopspring/decimal"
)

// ToDecimal converts a stored metric value to a decimal.
// Durations are expressed in seconds, the unit they are persisted in.
// The second return is false for NULLs and non-numeric values.
func ToDecimal(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case time.Duration:
		return decimal.NewFromFloat(val.Seconds()), true
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat(float64(val)), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt(int64(val)), true
	case decimal.Decimal:
		return val, true
	case string:
		d, err := decimal.NewFromString(val)
		if err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}
