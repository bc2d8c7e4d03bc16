package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/tour-availability/internal/api/router"
	"github.com/wolfman30/tour-availability/internal/app/bootstrap"
	appconfig "github.com/wolfman30/tour-availability/internal/config"
	"github.com/wolfman30/tour-availability/internal/http/handlers"
	"github.com/wolfman30/tour-availability/internal/observability/metrics"
	"github.com/wolfman30/tour-availability/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting tour availability API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	metricsHandler, availabilityMetrics := setupMetrics()

	svc, err := bootstrap.BuildAvailabilityService(cfg, logger, availabilityMetrics)
	if err != nil {
		logger.Error("failed to build availability service", "error", err)
		os.Exit(1)
	}

	limiter, closeLimiter := bootstrap.BuildRateLimiter(context.Background(), cfg, logger)
	defer closeLimiter()

	// Setup router
	routerCfg := &router.Config{
		Logger:              logger,
		AvailabilityHandler: handlers.NewAvailabilityHandler(svc, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         limiter,
	}
	r := router.New(routerCfg)

	srv := newServer(cfg, r)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers process and availability collectors on a dedicated
// registry and returns its /metrics handler.
func setupMetrics() (http.Handler, *metrics.AvailabilityMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewAvailabilityMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// newServer leaves room in WriteTimeout for a full fan-out of upstream calls.
func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	writeTimeout := 15 * time.Second
	if floor := cfg.BokunTimeout + 5*time.Second; floor > writeTimeout {
		writeTimeout = floor
	}
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
