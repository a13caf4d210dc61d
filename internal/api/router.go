// Package api provides the HTTP API for AMeDAS observations.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/api/handler"
	"github.com/amedasmap/amedasmap/internal/api/middleware"
	"github.com/amedasmap/amedasmap/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Service     *amedas.Service
	Reloader    handler.SnapshotReloader
	Registry    *resilience.Registry
	RequireTLS  bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "amedas-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a load balancer
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Service, cfg.Registry)
	amedasHandler := handler.NewAmedasHandler(cfg.Service, cfg.Reloader)

	// Create rate limit middleware for different endpoint categories
	reloadRateLimit := middleware.RateLimitByIP(middleware.ReloadRateLimit)       // 6 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Static classification metadata
		r.With(standardRateLimit).Get("/elements", amedasHandler.ListElements)
		r.With(standardRateLimit).Get("/markers/keys", amedasHandler.ListMarkerKeys)

		r.Route("/stations", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", amedasHandler.ListStations)
			r.With(standardRateLimit).Get("/{stationId}", amedasHandler.GetStation)
			// Each series load fans out to nine upstream requests.
			r.With(expensiveRateLimit).Get("/{stationId}/series", amedasHandler.GetSeries)
		})

		r.Route("/snapshot", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", amedasHandler.GetSnapshot)
			r.With(reloadRateLimit).Post("/reload", amedasHandler.ReloadSnapshot)
		})

		r.With(standardRateLimit).Get("/ranking", amedasHandler.GetRanking)
	})

	return r
}
