// Package main provides the entrypoint for the AMeDAS API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/amedas/jma"
	"github.com/amedasmap/amedasmap/internal/api"
	"github.com/amedasmap/amedasmap/internal/api/middleware"
	"github.com/amedasmap/amedasmap/internal/config"
	"github.com/amedasmap/amedasmap/internal/provider/resilience"
	"github.com/amedasmap/amedasmap/internal/telemetry"
	"github.com/amedasmap/amedasmap/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "amedas-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.ZerologLevel())

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting AMeDAS API")

	// Initialize OpenTelemetry
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := telemetry.NewProviderMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Upstream client and in-memory service
	loc := cfg.Location()
	registry := resilience.NewRegistry()
	client := jma.NewClient(jma.ClientConfig{
		BaseURL:  cfg.JMABaseURL,
		Location: loc,
		Timeout:  cfg.JMATimeout,
		Registry: registry,
		Logger:   log.With().Str("component", "jma").Logger(),
	})
	service := amedas.NewService(amedas.ServiceConfig{
		Provider: client,
		Logger:   log.With().Str("component", "amedas").Logger(),
		Location: loc,
		Metrics:  providerMetrics,
	})
	if err := telemetry.RegisterSnapshotAge(tp.Meter, func() time.Time {
		return service.Status().SnapshotTime
	}); err != nil {
		log.Warn().Err(err).Msg("failed to register snapshot age gauge")
	}

	// Refresh job, startup warmup and scheduler
	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Timeout:          cfg.JMATimeout * 3,
			SnapshotInterval: cfg.RefreshInterval,
			StationInterval:  cfg.StationRefreshInterval,
		},
		Loader: service,
		Logger: log.With().Str("component", "refresh").Logger(),
	})

	scheduler := worker.NewScheduler(refreshJob, loc, log.With().Str("component", "scheduler").Logger())
	go func() {
		// Readiness stays false until both datasets are loaded.
		if err := refreshJob.Warmup(ctx); err != nil {
			log.Error().Err(err).Msg("warmup aborted")
			return
		}
		if err := scheduler.Start(); err != nil {
			log.Error().Err(err).Msg("failed to start refresh scheduler")
		}
	}()
	defer scheduler.Stop()

	// Optional Pub/Sub refresh trigger
	if cfg.PubSubEnabled() {
		pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			RefreshJob:       refreshJob,
			Prober:           client,
			Logger:           log.With().Str("component", "pubsub").Logger(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer pubsubHandler.Close()

		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Service:     service,
		Reloader:    refreshJob,
		Registry:    registry,
		RequireTLS:  cfg.RequireTLS,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// A series load is nine upstream requests.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
