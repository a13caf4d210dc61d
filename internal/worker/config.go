// Package worker keeps the AMeDAS datasets fresh: a refresh job for the
// station directory and the snapshot, a scheduler and a Pub/Sub trigger.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the refresh job.
type RefreshConfig struct {
	// Timeout bounds a single directory or snapshot load.
	// Default: 30 seconds
	Timeout time.Duration

	// SnapshotInterval is the snapshot refresh cadence.
	// Default: 10 minutes, the upstream publishing interval
	SnapshotInterval time.Duration

	// StationInterval is the station directory refresh cadence.
	// Default: 24 hours
	StationInterval time.Duration

	// WarmupInitialInterval is the first delay between startup attempts.
	// Default: 2 seconds
	WarmupInitialInterval time.Duration

	// WarmupMaxInterval caps the delay between startup attempts.
	// Default: 1 minute
	WarmupMaxInterval time.Duration

	// WarmupMaxElapsed bounds the whole startup warmup, zero retries until
	// the context ends.
	// Default: 0
	WarmupMaxElapsed time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Timeout:               30 * time.Second,
		SnapshotInterval:      10 * time.Minute,
		StationInterval:       24 * time.Hour,
		WarmupInitialInterval: 2 * time.Second,
		WarmupMaxInterval:     time.Minute,
	}
}

// withDefaults fills unset fields from DefaultRefreshConfig.
func (c RefreshConfig) withDefaults() RefreshConfig {
	d := DefaultRefreshConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = d.SnapshotInterval
	}
	if c.StationInterval <= 0 {
		c.StationInterval = d.StationInterval
	}
	if c.WarmupInitialInterval <= 0 {
		c.WarmupInitialInterval = d.WarmupInitialInterval
	}
	if c.WarmupMaxInterval <= 0 {
		c.WarmupMaxInterval = d.WarmupMaxInterval
	}
	return c
}
