package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/amedasmap/amedasmap/internal/amedas"
)

// Target names one refreshable dataset.
type Target string

const (
	TargetStations Target = "stations"
	TargetSnapshot Target = "snapshot"
)

// Loader loads the two datasets. *amedas.Service implements it.
type Loader interface {
	LoadStations(ctx context.Context) (map[string]amedas.Station, error)
	LoadSnapshot(ctx context.Context) (*amedas.Snapshot, error)
}

// RefreshJob reloads the station directory and the snapshot. Concurrent
// requests for the same dataset share one load.
type RefreshJob struct {
	config RefreshConfig
	loader Loader
	logger zerolog.Logger
	group  singleflight.Group

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters. Loads shared between concurrent callers count once.
	TotalRuns         int64
	StationRefreshes  int64
	StationFailures   int64
	SnapshotRefreshes int64
	SnapshotFailures  int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig
	Loader Loader
	Logger zerolog.Logger
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:  cfg.Config.withDefaults(),
		loader:  cfg.Loader,
		logger:  cfg.Logger,
		metrics: &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Stations  TargetResult
	Snapshot  TargetResult
}

// TargetResult is the outcome of one dataset load.
type TargetResult struct {
	Target Target
	// Count is the number of stations or observations loaded.
	Count int
	Err   error
}

// OK reports whether the load succeeded.
func (r TargetResult) OK() bool {
	return r.Err == nil
}

// Err joins the errors of the failed targets, nil when both succeeded.
func (r *RefreshResult) Err() error {
	var errs []error
	for _, t := range []TargetResult{r.Stations, r.Snapshot} {
		if t.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Target, t.Err))
		}
	}
	return errors.Join(errs...)
}

// Run loads the directory and the snapshot concurrently. The loads are
// independent: one failing neither cancels nor fails the other.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	result := &RefreshResult{StartTime: time.Now()}

	j.logger.Info().Msg("starting refresh")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		n, err := j.RefreshStations(ctx)
		result.Stations = TargetResult{Target: TargetStations, Count: n, Err: err}
	}()
	go func() {
		defer wg.Done()
		result.Snapshot = TargetResult{Target: TargetSnapshot}
		snapshot, err := j.RefreshSnapshot(ctx)
		if err != nil {
			result.Snapshot.Err = err
			return
		}
		result.Snapshot.Count = len(snapshot.Observations)
	}()
	wg.Wait()

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Bool("stations_ok", result.Stations.OK()).
		Bool("snapshot_ok", result.Snapshot.OK()).
		Int("stations", result.Stations.Count).
		Int("observations", result.Snapshot.Count).
		Msg("refresh completed")

	return result
}

// RefreshStations reloads the station directory and returns its size.
func (j *RefreshJob) RefreshStations(ctx context.Context) (int, error) {
	v, err, shared := j.group.Do(string(TargetStations), func() (interface{}, error) {
		loadCtx, cancel := j.loadContext(ctx)
		defer cancel()
		stations, err := j.loader.LoadStations(loadCtx)
		j.recordLoad(TargetStations, err)
		return len(stations), err
	})
	j.logger.Debug().Bool("shared", shared).Msg("station refresh finished")
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// RefreshSnapshot reloads the latest snapshot.
func (j *RefreshJob) RefreshSnapshot(ctx context.Context) (*amedas.Snapshot, error) {
	v, err, shared := j.group.Do(string(TargetSnapshot), func() (interface{}, error) {
		loadCtx, cancel := j.loadContext(ctx)
		defer cancel()
		snapshot, err := j.loader.LoadSnapshot(loadCtx)
		j.recordLoad(TargetSnapshot, err)
		return snapshot, err
	})
	j.logger.Debug().Bool("shared", shared).Msg("snapshot refresh finished")
	if err != nil {
		return nil, err
	}
	return v.(*amedas.Snapshot), nil
}

// loadContext detaches a shared load from the cancellation of whichever
// caller started it, keeping its values and bounding it by the timeout.
func (j *RefreshJob) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), j.config.Timeout)
}

// Warmup runs the whole refresh with exponential backoff until both datasets
// load or the context ends. Loaders never retry on their own.
func (j *RefreshJob) Warmup(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = j.config.WarmupInitialInterval
	bo.MaxInterval = j.config.WarmupMaxInterval
	bo.MaxElapsedTime = j.config.WarmupMaxElapsed

	attempt := 0
	operation := func() error {
		attempt++
		result := j.Run(ctx)
		if err := result.Err(); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(errors.Join(ctx.Err(), err))
			}
			return err
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		j.logger.Warn().Err(err).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("warmup refresh failed")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	j.logger.Info().Int("attempts", attempt).Msg("warmup completed")
	return nil
}

func (j *RefreshJob) recordLoad(target Target, err error) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	switch {
	case target == TargetStations && err == nil:
		j.metrics.StationRefreshes++
	case target == TargetStations:
		j.metrics.StationFailures++
	case err == nil:
		j.metrics.SnapshotRefreshes++
	default:
		j.metrics.SnapshotFailures++
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		StationRefreshes:    j.metrics.StationRefreshes,
		StationFailures:     j.metrics.StationFailures,
		SnapshotRefreshes:   j.metrics.SnapshotRefreshes,
		SnapshotFailures:    j.metrics.SnapshotFailures,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"station_refreshes":     m.StationRefreshes,
		"station_failures":      m.StationFailures,
		"snapshot_refreshes":    m.SnapshotRefreshes,
		"snapshot_failures":     m.SnapshotFailures,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
	}
}
