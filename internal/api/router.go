// Package api provides the HTTP API for CropSight.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/api/handler"
	"github.com/cropsight/cropsight/internal/api/middleware"
	"github.com/cropsight/cropsight/internal/auth"
	"github.com/cropsight/cropsight/internal/farm"
	"github.com/cropsight/cropsight/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version          string
	BuildTime        string
	Logger           zerolog.Logger
	ServiceName      string
	Metrics          *middleware.Metrics
	AuthService      *auth.Service
	FarmService      *farm.Service
	AnalyticsService *analytics.Service

	// DB is pinged by the status endpoint. Optional.
	DB handler.Pinger

	// Registry supplies provider circuit state to the status endpoint. Optional.
	Registry *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "cropsight-api"
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

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB, cfg.Registry)
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	farmHandler := handler.NewFarmHandler(cfg.FarmService)
	analyticsHandler := handler.NewAnalyticsHandler(cfg.AnalyticsService, cfg.FarmService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories:
	// auth 10 req/min per IP, expensive 30 req/min, standard 100 req/min
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)
	expensiveRateLimit := middleware.RateLimitByFarmer(middleware.ExpensiveRateLimit)
	standardRateLimit := middleware.RateLimitByFarmer(middleware.StandardRateLimit)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
			// logout-all requires authentication
			r.With(authMiddleware).Post("/logout-all", authHandler.LogoutAll)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Farm endpoints (authenticated) - farmer-based rate limiting
		r.Route("/farms", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Get("/", farmHandler.ListFarms)
			r.Post("/", farmHandler.CreateFarm)
			r.Post("/from-coordinates", farmHandler.CreateFarmFromCoordinates)
			r.Route("/{farmId}", func(r chi.Router) {
				r.Get("/", farmHandler.GetFarm)
				r.Put("/", farmHandler.UpdateFarm)
				r.Delete("/", farmHandler.DeleteFarm)
			})
		})

		// Analytics endpoints (authenticated)
		r.Route("/analytics", func(r chi.Router) {
			r.Use(authMiddleware)

			r.Route("/farms/{farmId}", func(r chi.Router) {
				// Analysis triggers satellite requests - strict rate limiting
				r.With(expensiveRateLimit).Post("/analyze", analyticsHandler.AnalyzeFarm)
				r.With(expensiveRateLimit).Post("/history", analyticsHandler.History)

				r.With(standardRateLimit).Get("/latest", analyticsHandler.LatestAnalytics)
				r.With(standardRateLimit).Get("/ndvi-timeline", analyticsHandler.NDVITimeline)
			})

			r.With(standardRateLimit).Get("/farmer/history", analyticsHandler.FarmerHistory)
		})
	})

	return r
}
