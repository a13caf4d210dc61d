package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Scheduler periodically refreshes the snapshot and the station directory.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       *RefreshJob
	logger    zerolog.Logger
}

// NewScheduler creates a new Scheduler. Intervals come from the job's
// RefreshConfig; loc is the zone the scheduler runs in.
func NewScheduler(job *RefreshJob, loc *time.Location, logger zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	// A slow load must not pile up behind itself.
	s.SingletonModeAll()
	// Startup warmup performs the first loads.
	s.WaitForScheduleAll()

	return &Scheduler{
		scheduler: s,
		job:       job,
		logger:    logger,
	}
}

// Start schedules both refreshes and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	cfg := s.job.config

	_, err := s.scheduler.Every(cfg.SnapshotInterval).Tag(string(TargetSnapshot)).Do(func() {
		snapshot, err := s.job.RefreshSnapshot(context.Background())
		if err != nil {
			s.logger.Error().Err(err).Msg("scheduled snapshot refresh failed")
			return
		}
		s.logger.Debug().
			Time("observed_at", snapshot.Time).
			Msg("scheduled snapshot refresh completed")
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Every(cfg.StationInterval).Tag(string(TargetStations)).Do(func() {
		if _, err := s.job.RefreshStations(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("scheduled station refresh failed")
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Dur("snapshot_interval", cfg.SnapshotInterval).
		Dur("station_interval", cfg.StationInterval).
		Msg("refresh scheduler started")

	s.scheduler.StartAsync()
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
