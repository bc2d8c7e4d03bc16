package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/tour-availability/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/tour-availability/internal/http/middleware"
	"github.com/wolfman30/tour-availability/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *handlers.AvailabilityHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// RateLimiter applies to the availability routes only (optional).
	RateLimiter httpmiddleware.Limiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.AvailabilityHandler != nil {
		r.Group(func(feed chi.Router) {
			if cfg.RateLimiter != nil {
				feed.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
			}
			feed.Get("/availability", cfg.AvailabilityHandler.ListByQuery)
			feed.Get("/availability/{start}/{end}", cfg.AvailabilityHandler.ListByPath)
		})
	}

	return r
}
