// Package api provides the HTTP API for AddonPulse.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/addonpulse/addonpulse/internal/addon"
	"github.com/addonpulse/addonpulse/internal/api/handler"
	"github.com/addonpulse/addonpulse/internal/api/middleware"
	"github.com/addonpulse/addonpulse/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version         string
	BuildTime       string
	Logger          zerolog.Logger
	ServiceName     string
	Metrics         *middleware.Metrics
	AddonService    *addon.Service
	Registry        *resilience.Registry
	ReadinessProbes map[string]handler.ReadinessProbe
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "addonpulse-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireJSON)          // Reject non-JSON bodies on mutating methods

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.ReadinessProbes)
	addonHandler := handler.NewAddonHandler(cfg.AddonService, cfg.Logger)

	// Create rate limit middleware for different endpoint categories
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

		// Addon registry
		r.Route("/addons", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", addonHandler.ListAddons)
			r.Post("/", addonHandler.InstallAddon)
			r.Put("/", addonHandler.BulkSaveAddons)
			r.Route("/{addonId}", func(r chi.Router) {
				r.Get("/", addonHandler.GetAddon)
				r.Put("/", addonHandler.UpdateAddon)
				r.Delete("/", addonHandler.DeleteAddon)
			})
		})

		// Custom-method endpoints. The ones that fan out network probes
		// get the stricter limit.
		r.With(standardRateLimit).Post("/addons:reorder", addonHandler.ReorderAddons)
		r.With(standardRateLimit).Post("/addons/{addonId}:protect", addonHandler.ProtectAddon)
		r.With(expensiveRateLimit).Post("/addons:check", addonHandler.CheckAddons)
		r.With(expensiveRateLimit).Post("/addons/{addonId}:verify", addonHandler.VerifyAddon)
	})

	return r
}
