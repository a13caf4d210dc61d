package amedas

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for AMeDAS data sources.
type Provider interface {
	// FetchStations fetches the station directory keyed by station ID.
	FetchStations(ctx context.Context) (map[string]Station, error)

	// FetchLatestTime resolves the timestamp of the newest published snapshot.
	FetchLatestTime(ctx context.Context) (time.Time, error)

	// FetchSnapshot fetches every station's observation at t.
	FetchSnapshot(ctx context.Context, t time.Time) (*Snapshot, error)

	// FetchWindow fetches one 3 hour window of a station's observations.
	FetchWindow(ctx context.Context, stationID string, start time.Time) ([]Observation, error)

	// Name returns the provider name for logging.
	Name() string
}

// MetricsRecorder records provider call outcomes.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// ServiceConfig holds configuration for the AMeDAS service.
type ServiceConfig struct {
	// Provider is the upstream data source.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Location is the fixed zone series windows are computed in (default: JST).
	Location *time.Location

	// Metrics records provider calls (optional).
	Metrics MetricsRecorder
}

// Service keeps the most recently completed directory and snapshot loads and
// serves time series on demand.
//
// Loads replace state wholesale when they complete, so a slower superseded
// load that finishes last wins.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	series   *SeriesAggregator
	metrics  MetricsRecorder

	mu               sync.RWMutex
	stations         map[string]Station
	stationsLoadedAt time.Time
	stationsErr      error
	snapshot         *Snapshot
	snapshotLoadedAt time.Time
	snapshotErr      error
}

// NewService creates a new AMeDAS service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
	s.series = NewSeriesAggregator(SeriesConfig{
		Fetcher:  cfg.Provider,
		Location: cfg.Location,
		Logger:   cfg.Logger,
	})
	return s
}

func (s *Service) record(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), operation, time.Since(start), err)
	}
}

// LoadStations fetches the station directory and makes it current.
func (s *Service) LoadStations(ctx context.Context) (map[string]Station, error) {
	start := time.Now()
	stations, err := s.provider.FetchStations(ctx)
	s.record("stations", start, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stationsErr = err
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Msg("failed to load station directory")
		return nil, err
	}

	s.stations = stations
	s.stationsLoadedAt = time.Now()
	s.stationsErr = nil
	s.logger.Info().
		Int("stations", len(stations)).
		Msg("station directory updated")
	return stations, nil
}

// LoadSnapshot resolves the latest timestamp, fetches that snapshot and makes it current.
func (s *Service) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	snapshot, err := s.fetchLatestSnapshot(ctx)
	s.record("snapshot", start, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.snapshotErr = err
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Msg("failed to load snapshot")
		return nil, err
	}

	s.snapshot = snapshot
	s.snapshotLoadedAt = time.Now()
	s.snapshotErr = nil
	s.logger.Info().
		Time("observed_at", snapshot.Time).
		Int("observations", len(snapshot.Observations)).
		Msg("snapshot updated")
	return snapshot, nil
}

func (s *Service) fetchLatestSnapshot(ctx context.Context) (*Snapshot, error) {
	latest, err := s.provider.FetchLatestTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving latest time: %w", err)
	}
	snapshot, err := s.provider.FetchSnapshot(ctx, latest)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", latest.Format(time.RFC3339), err)
	}
	return snapshot, nil
}

// LoadSeries loads the 24 hour series of a station anchored at the current
// snapshot's timestamp.
func (s *Service) LoadSeries(ctx context.Context, stationID string) ([]Observation, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.LoadSeriesAt(ctx, stationID, snapshot.Time)
}

// LoadSeriesAt loads the 24 hour series of a station ending at anchor.
func (s *Service) LoadSeriesAt(ctx context.Context, stationID string, anchor time.Time) ([]Observation, error) {
	s.mu.RLock()
	stations := s.stations
	s.mu.RUnlock()
	// The directory may not be loaded yet; only reject IDs it positively lacks.
	if stations != nil {
		if _, ok := stations[stationID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrStationNotFound, stationID)
		}
	}

	start := time.Now()
	series, err := s.series.Load(ctx, stationID, anchor)
	s.record("series", start, err)
	return series, err
}

// Stations returns the current directory sorted by station ID.
func (s *Service) Stations() []Station {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Station, 0, len(s.stations))
	for _, st := range s.stations {
		list = append(list, st)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Station looks up a station in the current directory.
func (s *Service) Station(id string) (Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stations[id]
	if !ok {
		return Station{}, fmt.Errorf("%w: %s", ErrStationNotFound, id)
	}
	return st, nil
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	return s.snapshot, nil
}

// Ranking ranks the current snapshot for an element.
func (s *Service) Ranking(element Element, limit int) ([]Observation, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return Rank(snapshot.Observations, element, limit), nil
}

// Status describes what the service currently holds.
type Status struct {
	Provider         string
	StationCount     int
	StationsLoadedAt time.Time
	StationsError    error
	SnapshotTime     time.Time
	SnapshotLoadedAt time.Time
	SnapshotError    error
}

// Ready reports whether both the directory and a snapshot are loaded.
func (st Status) Ready() bool {
	return !st.StationsLoadedAt.IsZero() && !st.SnapshotLoadedAt.IsZero()
}

// Status returns the current load status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Provider:         s.provider.Name(),
		StationCount:     len(s.stations),
		StationsLoadedAt: s.stationsLoadedAt,
		StationsError:    s.stationsErr,
		SnapshotLoadedAt: s.snapshotLoadedAt,
		SnapshotError:    s.snapshotErr,
	}
	if s.snapshot != nil {
		st.SnapshotTime = s.snapshot.Time
	}
	return st
}
