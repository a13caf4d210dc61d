package amedas

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/amedasmap/amedasmap/internal/amedas"

const (
	// WindowLength is the span covered by one per-station window file.
	WindowLength = 3 * time.Hour

	// WindowCount is the number of windows fetched for one series.
	WindowCount = 9

	// SeriesLength is the number of 10-minute samples kept (24 hours).
	SeriesLength = 144
)

// DefaultLocation returns the fixed zone every upstream timestamp is expressed in.
func DefaultLocation() *time.Location {
	return time.FixedZone("JST", 9*60*60)
}

// WindowFetcher fetches the observations of one station window.
type WindowFetcher interface {
	FetchWindow(ctx context.Context, stationID string, start time.Time) ([]Observation, error)
}

// SeriesConfig holds configuration for the series aggregator.
type SeriesConfig struct {
	// Fetcher loads individual windows (required).
	Fetcher WindowFetcher

	// Location is the zone window boundaries are computed in (default: JST).
	Location *time.Location

	// Logger for aggregator operations.
	Logger zerolog.Logger
}

// SeriesAggregator assembles a 24 hour series for one station from
// concurrently fetched 3 hour windows.
type SeriesAggregator struct {
	fetcher  WindowFetcher
	location *time.Location
	logger   zerolog.Logger
}

// NewSeriesAggregator creates a new series aggregator.
func NewSeriesAggregator(cfg SeriesConfig) *SeriesAggregator {
	loc := cfg.Location
	if loc == nil {
		loc = DefaultLocation()
	}
	return &SeriesAggregator{
		fetcher:  cfg.Fetcher,
		location: loc,
		logger:   cfg.Logger,
	}
}

// WindowStart returns the most recent 3 hour boundary at or before anchor, in loc.
func WindowStart(anchor time.Time, loc *time.Location) time.Time {
	t := anchor.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()-t.Hour()%3, 0, 0, 0, loc)
}

// WindowStarts returns the WindowCount window starts ending at anchor, newest first.
func WindowStarts(anchor time.Time, loc *time.Location) []time.Time {
	first := WindowStart(anchor, loc)
	starts := make([]time.Time, WindowCount)
	for i := range starts {
		starts[i] = first.Add(-time.Duration(i) * WindowLength)
	}
	return starts
}

// Load fetches every window concurrently and returns the merged series.
// The first failing window cancels the others and fails the whole call;
// no partial series is ever returned.
func (a *SeriesAggregator) Load(ctx context.Context, stationID string, anchor time.Time) ([]Observation, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "amedas.LoadSeries")
	defer span.End()
	span.SetAttributes(
		attribute.String("amedas.station_id", stationID),
		attribute.String("amedas.anchor", anchor.Format(time.RFC3339)),
	)

	starts := WindowStarts(anchor, a.location)
	windows := make([][]Observation, len(starts))

	g, gctx := errgroup.WithContext(ctx)
	for i, start := range starts {
		g.Go(func() error {
			obs, err := a.fetcher.FetchWindow(gctx, stationID, start)
			if err != nil {
				return fmt.Errorf("window %s: %w", start.Format("20060102_15"), err)
			}
			windows[i] = obs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "series load failed")
		a.logger.Error().Err(err).
			Str("station_id", stationID).
			Time("anchor", anchor).
			Msg("failed to load series")
		return nil, err
	}

	series := MergeSeries(windows)
	span.SetAttributes(attribute.Int("amedas.samples", len(series)))

	a.logger.Debug().
		Str("station_id", stationID).
		Int("samples", len(series)).
		Msg("series loaded")

	return series, nil
}

type sampleKey struct {
	stationID string
	unixNano  int64
}

// MergeSeries flattens windows, drops duplicate (station, time) samples,
// sorts ascending by time and keeps the newest SeriesLength samples.
func MergeSeries(windows [][]Observation) []Observation {
	seen := make(map[sampleKey]int)
	var merged []Observation
	for _, w := range windows {
		for _, obs := range w {
			k := sampleKey{stationID: obs.StationID, unixNano: obs.Time.UnixNano()}
			if i, ok := seen[k]; ok {
				merged[i] = obs
				continue
			}
			seen[k] = len(merged)
			merged = append(merged, obs)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Time.Equal(merged[j].Time) {
			return merged[i].StationID < merged[j].StationID
		}
		return merged[i].Time.Before(merged[j].Time)
	})

	if len(merged) > SeriesLength {
		merged = merged[len(merged)-SeriesLength:]
	}
	return merged
}
