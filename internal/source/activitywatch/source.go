package activitywatch

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/nwrousell/dashboard/internal/core/classify"
	apperrors "github.com/nwrousell/dashboard/internal/core/errors"
	"github.com/nwrousell/dashboard/internal/core/segment"
	"github.com/nwrousell/dashboard/internal/core/storage"
	"github.com/nwrousell/dashboard/internal/core/timewindow"
	"github.com/nwrousell/dashboard/internal/source"
)

// ID is both the source id and its table name.
const ID = "computer_use"

type Options struct {
	Hostname     string // empty = os.Hostname()
	GapThreshold time.Duration
	Epoch        time.Time
}

// Source is the computer-usage event source.
type Source struct {
	client     *Client
	classifier *classify.Classifier
	opts       Options
}

var _ source.EventSource = (*Source)(nil)

func New(client *Client, classifier *classify.Classifier, opts Options) (*Source, error) {
	if opts.Hostname == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, apperrors.PreconditionFailuref("resolve hostname: %v", err)
		}
		opts.Hostname = host
	}
	if opts.GapThreshold < 0 {
		return nil, apperrors.InvalidArgumentf("negative gap threshold %s", opts.GapThreshold)
	}
	return &Source{client: client, classifier: classifier, opts: opts}, nil
}

func (s *Source) ID() string                  { return ID }
func (s *Source) Table() string               { return ID }
func (s *Source) Schema() storage.Schema      { return source.SegmentSchema }
func (s *Source) DefaultEpoch() time.Time     { return s.opts.Epoch }
func (s *Source) GapThreshold() time.Duration { return s.opts.GapThreshold }
func (s *Source) Categories() []string        { return s.classifier.Categories() }

// FetchEvents queries the window and labels every event by app and title.
// Events are returned in start order with overlaps clipped away, since the
// segmenter only accepts a strictly increasing, non-overlapping stream.
func (s *Source) FetchEvents(ctx context.Context, w timewindow.Window) ([]segment.RawEvent, error) {
	events, err := s.client.Query(ctx, s.opts.Hostname, w)
	if err != nil {
		return nil, apperrors.SourceFetchFailure(err, "activitywatch %s", s.opts.Hostname)
	}

	raw := make([]segment.RawEvent, 0, len(events))
	for _, e := range events {
		raw = append(raw, segment.RawEvent{
			Timestamp:  e.Timestamp,
			Duration:   time.Duration(e.Duration * float64(time.Second)),
			Categories: s.classifier.Classify(e.Data.App, e.Data.Title),
		})
	}
	out := normalize(raw)

	slog.Debug("[ActivityWatch] Fetched events",
		"hostname", s.opts.Hostname,
		"received", len(events),
		"kept", len(out),
	)
	return out, nil
}

// normalize sorts events by start and clips each one so it begins no earlier
// than the previous one ends. Events left with no duration are dropped.
func normalize(events []segment.RawEvent) []segment.RawEvent {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	out := make([]segment.RawEvent, 0, len(events))
	for _, e := range events {
		if len(out) > 0 {
			prevEnd := out[len(out)-1].End()
			if e.Timestamp.Before(prevEnd) {
				end := e.End()
				e.Timestamp = prevEnd
				e.Duration = end.Sub(prevEnd)
			}
		}
		if e.Duration <= 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}
