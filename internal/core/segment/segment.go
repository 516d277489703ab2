// Package segment turns fragmented activity events into continuous labeled segments.
package segment

import (
	"fmt"
	"time"

	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
)

// RawEvent is one activity observation as reported by a tracker.
type RawEvent struct {
	Timestamp  time.Time
	Duration   time.Duration
	Categories []string
}

// End returns the instant the event stops.
func (e RawEvent) End() time.Time {
	return e.Timestamp.Add(e.Duration)
}

// HasCategory reports whether the event carries the given label.
func (e RawEvent) HasCategory(category string) bool {
	for _, c := range e.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Segment is a maximal run of same-category activity.
type Segment struct {
	Start    time.Time
	Duration time.Duration
	Category string
}

// End returns the instant the segment stops.
func (s Segment) End() time.Time {
	return s.Start.Add(s.Duration)
}

type span struct {
	start time.Time
	dur   time.Duration
}

func (s span) end() time.Time { return s.start.Add(s.dur) }

// Merge turns time-ordered events of a single category into segments.
//
// Adjacent events whose gap is between zero and gap (inclusive) are flooded
// so the earlier event ends where the next one starts, then every run of
// touching events is joined into one Segment labeled with category.
// Events must be strictly increasing by timestamp and must not overlap.
func Merge(events []RawEvent, category string, gap time.Duration) ([]Segment, error) {
	if gap < 0 {
		return nil, apperrors.InvalidArgumentf("gap threshold must not be negative, got %s", gap)
	}
	if len(events) == 0 {
		return []Segment{}, nil
	}
	if err := validate(events); err != nil {
		return nil, err
	}

	spans := flood(events, gap)
	return join(spans, category), nil
}

func validate(events []RawEvent) error {
	for i, e := range events {
		if e.Duration < 0 {
			return apperrors.InvalidArgumentf("event %d has negative duration %s", i, e.Duration)
		}
		if i == 0 {
			continue
		}
		prev := events[i-1]
		if !e.Timestamp.After(prev.Timestamp) {
			return apperrors.MalformedInputf("event %d at %s does not start after event %d at %s",
				i, e.Timestamp.Format(time.RFC3339Nano), i-1, prev.Timestamp.Format(time.RFC3339Nano))
		}
		if e.Timestamp.Before(prev.End()) {
			return apperrors.MalformedInputf("event %d at %s overlaps event %d ending at %s",
				i, e.Timestamp.Format(time.RFC3339Nano), i-1, prev.End().Format(time.RFC3339Nano))
		}
	}
	return nil
}

func flood(events []RawEvent, gap time.Duration) []span {
	spans := make([]span, len(events))
	for i, e := range events {
		spans[i] = span{start: e.Timestamp, dur: e.Duration}
	}
	for i := 0; i+1 < len(spans); i++ {
		between := spans[i+1].start.Sub(spans[i].end())
		if between >= 0 && between <= gap {
			spans[i].dur = spans[i+1].start.Sub(spans[i].start)
		}
	}
	return spans
}

func join(spans []span, category string) []Segment {
	segments := make([]Segment, 0, len(spans))
	run := Segment{Start: spans[0].start, Duration: spans[0].dur, Category: category}
	for _, s := range spans[1:] {
		if s.start.Equal(run.End()) {
			run.Duration += s.dur
			continue
		}
		segments = append(segments, run)
		run = Segment{Start: s.start, Duration: s.dur, Category: category}
	}
	return append(segments, run)
}

// Filter returns the events carrying category, preserving order.
func Filter(events []RawEvent, category string) []RawEvent {
	out := make([]RawEvent, 0, len(events))
	for _, e := range events {
		if e.HasCategory(category) {
			out = append(out, e)
		}
	}
	return out
}

// SegmentByCategory runs Merge once per category over the events carrying
// that label and concatenates the results in category order. Segments of
// different categories may overlap in time.
func SegmentByCategory(events []RawEvent, categories []string, gap time.Duration) ([]Segment, error) {
	var all []Segment
	for _, category := range categories {
		segments, err := Merge(Filter(events, category), category, gap)
		if err != nil {
			return nil, fmt.Errorf("segment category %q: %w", category, err)
		}
		all = append(all, segments...)
	}
	return all, nil
}
