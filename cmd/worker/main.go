// Package main provides the entrypoint for the CropSight background worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/analytics/sentinelhub"
	"github.com/cropsight/cropsight/internal/database"
	"github.com/cropsight/cropsight/internal/farm"
	"github.com/cropsight/cropsight/internal/provider/resilience"
	"github.com/cropsight/cropsight/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "cropsight-worker"

	// Load .env for local development; ignored when absent.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CropSight worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	// Wire the refresh job: farm repository, satellite provider, analytics.
	farmRepo := farm.NewPostgresRepository(pool)
	analyticsRepo := analytics.NewPostgresRepository(pool)
	farmService := farm.NewService(farm.ServiceConfig{
		Repository: farmRepo,
		Analytics:  analyticsRepo,
		Logger:     log,
	})

	satellite := sentinelhub.NewClient(sentinelhub.ClientConfig{
		ClientID:     os.Getenv("SENTINELHUB_CLIENT_ID"),
		ClientSecret: os.Getenv("SENTINELHUB_CLIENT_SECRET"),
		Registry:     resilience.NewRegistry(),
		Logger:       log,
	})

	analyticsService := analytics.NewService(analytics.ServiceConfig{
		Provider:   satellite,
		Repository: analyticsRepo,
		Farms:      farmService,
		Logger:     log,
	})

	refreshConfig := worker.DefaultRefreshConfig()
	if raw := os.Getenv("REFRESH_BATCH_LIMIT"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			refreshConfig.BatchLimit = limit
		}
	}
	if raw := os.Getenv("REFRESH_STALE_AFTER"); raw != "" {
		if staleAfter, err := time.ParseDuration(raw); err == nil && staleAfter > 0 {
			refreshConfig.StaleAfter = staleAfter
		}
	}

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   refreshConfig,
		Logger:   log,
		Farms:    farmRepo,
		Analyzer: analyticsService,
	})

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":%q}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Prefer Pub/Sub triggered jobs; fall back to an interval ticker when
	// no subscription is configured.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")

	if projectID != "" && subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			RefreshJob:       refreshJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		interval := 1 * time.Hour
		if raw := os.Getenv("REFRESH_INTERVAL"); raw != "" {
			if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
				interval = parsed
			}
		}

		log.Info().
			Dur("interval", interval).
			Msg("pubsub not configured, running on interval")

		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					refreshJob.Run(ctx)
				}
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
