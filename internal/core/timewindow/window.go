package timewindow

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const day = 24 * time.Hour

// Window is a time range inclusive on both ends, matching SQL BETWEEN.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Valid reports whether End is not before Start.
func (w Window) Valid() bool {
	return !w.End.Before(w.Start)
}

// Label renders the window as "<start> - <end>" in RFC 3339.
func (w Window) Label() string {
	return w.Start.Format(time.RFC3339) + " - " + w.End.Format(time.RFC3339)
}

// Day returns the calendar day of Start as YYYY-MM-DD in Start's location.
func (w Window) Day() string {
	return w.Start.Format(time.DateOnly)
}

// StartOfWeek returns Monday 00:00 of the week containing t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	year, month, d := t.Date()
	return time.Date(year, month, d, 0, 0, 0, 0, t.Location())
}

// Periods generates count consecutive windows of length step starting at start.
// Whole-day steps advance by calendar days so DST shifts keep local midnights aligned.
func Periods(start time.Time, step time.Duration, count int) []Window {
	if count <= 0 || step <= 0 {
		return nil
	}
	periods := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		s, e := advance(start, step, i), advance(start, step, i+1)
		periods = append(periods, Window{Start: s, End: e})
	}
	return periods
}

// LastNDays returns n daily windows ending with the day that contains now.
// Each day starts at local midnight plus dayOffset (e.g. 4h to count late nights
// towards the previous day).
func LastNDays(now time.Time, n int, dayOffset time.Duration) []Window {
	if n <= 0 {
		return nil
	}
	today := StartOfDay(now).Add(dayOffset)
	if now.Before(today) {
		today = today.AddDate(0, 0, -1)
	}
	return Periods(today.AddDate(0, 0, -(n-1)), day, n)
}

func advance(start time.Time, step time.Duration, n int) time.Time {
	if step%day == 0 {
		return start.AddDate(0, 0, n*int(step/day))
	}
	return start.Add(time.Duration(n) * step)
}

// ParseSpan parses a duration string. Supports Go duration syntax
// (e.g. "90s", "1h") plus "Nd" for days.
func ParseSpan(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("span must not be empty")
	}

	// time.ParseDuration has no day unit.
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid span %q: %w", s, err)
		}
		if days <= 0 {
			return 0, fmt.Errorf("span must be positive, got %q", s)
		}
		if int64(days) > math.MaxInt64/int64(day) {
			return 0, fmt.Errorf("span %q is too large", s)
		}
		return time.Duration(days) * day, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid span %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("span must be positive, got %q", s)
	}
	return d, nil
}
