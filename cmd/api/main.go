// Package main provides the entrypoint for the AddonPulse API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/addonpulse/addonpulse/internal/addon"
	"github.com/addonpulse/addonpulse/internal/api"
	"github.com/addonpulse/addonpulse/internal/api/handler"
	"github.com/addonpulse/addonpulse/internal/api/middleware"
	"github.com/addonpulse/addonpulse/internal/database"
	"github.com/addonpulse/addonpulse/internal/health"
	"github.com/addonpulse/addonpulse/internal/relay"
	"github.com/addonpulse/addonpulse/internal/resilience"
	"github.com/addonpulse/addonpulse/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "addonpulse-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AddonPulse API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
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

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Track upstream circuit state for the status endpoint
	registry := resilience.NewRegistry()
	upstreamMetrics, err := resilience.NewUpstreamMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upstream metrics")
	}

	// Initialize the CORS relay client
	relayClient := relay.NewClient(relay.ClientConfig{
		BaseURL:  os.Getenv("RELAY_BASE_URL"),
		Registry: registry,
		Metrics:  upstreamMetrics,
	})
	log.Info().Str("base_url", relayClient.BaseURL()).Msg("relay client initialized")

	// Initialize the health engine
	checker := health.NewChecker(health.CheckerConfig{
		Relay:  relayClient,
		Logger: log,
	})
	verifier := health.NewVerifier(health.VerifierConfig{
		Relay:  relayClient,
		Logger: log,
	})

	// Initialize addon repository and service
	addonRepo := addon.NewPostgresRepository(pool)
	addonService := addon.NewService(addonRepo, checker, verifier)
	log.Info().Msg("addon service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		ServiceName:  serviceName,
		Metrics:      metrics,
		AddonService: addonService,
		Registry:     registry,
		ReadinessProbes: map[string]handler.ReadinessProbe{
			"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		},
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
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

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
