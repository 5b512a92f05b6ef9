// Package main provides the entrypoint for the CropSight API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/analytics/sentinelhub"
	"github.com/cropsight/cropsight/internal/api"
	"github.com/cropsight/cropsight/internal/api/middleware"
	"github.com/cropsight/cropsight/internal/auth"
	"github.com/cropsight/cropsight/internal/database"
	"github.com/cropsight/cropsight/internal/farm"
	"github.com/cropsight/cropsight/internal/provider/resilience"
	"github.com/cropsight/cropsight/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "cropsight-api"

	// Load .env for local development; ignored when absent.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CropSight API")

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

	// Initialize auth repositories and service
	farmerRepo := auth.NewPostgresFarmerRepository(pool)
	refreshRepo := auth.NewPostgresRefreshTokenRepository(pool)

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.cropsight.io",
		Audience:   "cropsight-api",
	})

	authService := auth.NewService(auth.ServiceConfig{
		JWTService:  jwtService,
		FarmerRepo:  farmerRepo,
		RefreshRepo: refreshRepo,
	})
	log.Info().Msg("auth service initialized")

	// Initialize farm repository and service
	analyticsRepo := analytics.NewPostgresRepository(pool)
	farmService := farm.NewService(farm.ServiceConfig{
		Repository: farm.NewPostgresRepository(pool),
		Analytics:  analyticsRepo,
		Logger:     log,
	})
	log.Info().Msg("farm service initialized")

	// Initialize the satellite provider and analytics service
	registry := resilience.NewRegistry()
	satellite := sentinelhub.NewClient(sentinelhub.ClientConfig{
		ClientID:     os.Getenv("SENTINELHUB_CLIENT_ID"),
		ClientSecret: os.Getenv("SENTINELHUB_CLIENT_SECRET"),
		Registry:     registry,
		Logger:       log,
	})
	if os.Getenv("SENTINELHUB_CLIENT_ID") == "" {
		log.Warn().Msg("Sentinel Hub credentials not configured - analysis endpoints will fail")
	}

	analyticsService := analytics.NewService(analytics.ServiceConfig{
		Provider:   satellite,
		Repository: analyticsRepo,
		Farms:      farmService,
		Logger:     log,
	})
	log.Info().Msg("analytics service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		AuthService:      authService,
		FarmService:      farmService,
		AnalyticsService: analyticsService,
		DB:               pool,
		Registry:         registry,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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
