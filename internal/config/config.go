package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/tour-availability/internal/bokun"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Bokun upstream
	BokunAccessKey      string
	BokunSecretKey      string
	BokunBaseURL        string
	BokunLang           string
	BokunCurrency       string
	BokunIncludeSoldOut bool
	BokunTimeout        time.Duration
	BokunMaxAttempts    int

	// Calendar output
	DisplayTimezone      string
	ProductsFile         string
	MaxConcurrentFetches int

	// HTTP surface
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "5000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BokunAccessKey:      strings.TrimSpace(getEnv("BOKUN_ACCESS_KEY", "")),
		BokunSecretKey:      strings.TrimSpace(getEnv("BOKUN_SECRET_KEY", "")),
		BokunBaseURL:        getEnv("BOKUN_BASE_URL", "https://api.bokun.io"),
		BokunLang:           getEnv("BOKUN_LANG", "EN"),
		BokunCurrency:       getEnv("BOKUN_CURRENCY", "ISK"),
		BokunIncludeSoldOut: getEnvAsBool("BOKUN_INCLUDE_SOLD_OUT", true),
		BokunTimeout:        getEnvAsDuration("BOKUN_TIMEOUT", 15*time.Second),
		BokunMaxAttempts:    getEnvAsInt("BOKUN_MAX_ATTEMPTS", 1),

		DisplayTimezone:      getEnv("DISPLAY_TIMEZONE", "Europe/London"),
		ProductsFile:         getEnv("PRODUCTS_FILE", ""),
		MaxConcurrentFetches: getEnvAsInt("MAX_CONCURRENT_FETCHES", 4),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// BokunCredentials returns the upstream credentials. ok is false when either
// key is missing; callers treat that as the unconfigured state.
func (c *Config) BokunCredentials() (creds bokun.Credentials, ok bool) {
	if c == nil || c.BokunAccessKey == "" || c.BokunSecretKey == "" {
		return bokun.Credentials{}, false
	}
	return bokun.Credentials{AccessKey: c.BokunAccessKey, SecretKey: c.BokunSecretKey}, true
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
