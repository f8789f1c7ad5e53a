package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"privacyguard-lab/internal/api/handlers"
	apimiddleware "privacyguard-lab/internal/api/middleware"
	"privacyguard-lab/internal/config"
	"privacyguard-lab/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limiter  apimiddleware.RateLimitStore
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. limiter may be nil, which
// disables rate limiting.
func NewRouter(cfg config.Config, h *handlers.Handlers, limiter apimiddleware.RateLimitStore, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limiter:  limiter,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)

	// CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
	})

	// WebSocket streaming endpoint (live analysis events); no request timeout
	router.Get("/ws/analyses", r.handlers.Streaming.HandleWebSocket)

	// API v1 routes (authenticated)
	router.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(60 * time.Second))
		api.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKeys))

		// Rate limiting runs after auth so keys are limited per key
		if r.config.RateLimit.Enabled && r.limiter != nil {
			api.Use(apimiddleware.RateLimiter(r.limiter, r.config.RateLimit, r.logger))
		}

		// App privacy analysis
		api.Route("/apps", func(apps chi.Router) {
			apps.Post("/analyze", r.handlers.AppSecurity.AnalyzeApp)
			apps.Post("/analyze/batch", r.handlers.AppSecurity.AnalyzeBatch)
			apps.Post("/report", r.handlers.AppSecurity.Report)
			apps.Post("/summary", r.handlers.AppSecurity.Summary)
			apps.Get("/stats", r.handlers.AppSecurity.GetStats)

			// Stored analyses
			apps.Get("/analyses", r.handlers.AppSecurity.ListAnalyses)
			apps.Get("/analyses/{id}", r.handlers.AppSecurity.GetAnalysis)

			// SDK prevalence graph
			apps.Get("/sdks/top", r.handlers.AppSecurity.TopSDKs)
			apps.Get("/sdks/{name}/apps", r.handlers.AppSecurity.AppsEmbedding)
		})

		// Reference catalogs
		api.Route("/catalog", func(cat chi.Router) {
			cat.Get("/permissions", r.handlers.Catalog.ListPermissions)
			cat.Get("/permissions/dangerous", r.handlers.Catalog.ListDangerousPermissions)
			cat.Get("/permissions/{identifier}", r.handlers.Catalog.GetPermission)
			cat.Get("/sdks", r.handlers.Catalog.ListSDKs)
			cat.Get("/sdks/detect", r.handlers.Catalog.DetectSDKs)
		})

		api.Get("/streaming/stats", r.handlers.Streaming.GetStats)
	})

	return router
}
