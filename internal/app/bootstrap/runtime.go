package bootstrap

import (
	"context"
	"crypto/tls"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/tour-availability/internal/config"
	httpmiddleware "github.com/wolfman30/tour-availability/internal/http/middleware"
	"github.com/wolfman30/tour-availability/pkg/logging"
)

const rateLimitKeyPrefix = "tours:rl"

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildRateLimiter returns the client rate limiter for the availability
// routes, or nil when RATE_LIMIT_RPS is 0. With a reachable Redis the limit
// is a fixed window of RATE_LIMIT_BURST requests per burst/rps seconds shared
// across instances; otherwise each process keeps its own token buckets. The
// returned func releases the limiter's resources.
func BuildRateLimiter(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (httpmiddleware.Limiter, func()) {
	noop := func() {}
	if cfg == nil || cfg.RateLimitRPS <= 0 {
		return nil, noop
	}
	if logger == nil {
		logger = logging.Default()
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
		window := fixedWindow(cfg.RateLimitRPS, burst)
		logger.Info("rate limiting via redis", "limit", burst, "window", window.String())
		return httpmiddleware.NewRedisRateLimiter(client, burst, window, rateLimitKeyPrefix), func() { _ = client.Close() }
	}

	logger.Info("rate limiting in memory", "rps", cfg.RateLimitRPS, "burst", burst)
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, burst)
	return limiter, limiter.Stop
}

// fixedWindow spreads burst requests over the window that yields rps on
// average, rounded up to whole milliseconds.
func fixedWindow(rps float64, burst int) time.Duration {
	ms := math.Ceil(float64(burst) / rps * 1000)
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}
