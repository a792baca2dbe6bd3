// Package config loads application settings from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// Pipeline
	TickInterval time.Duration
	Workers      int

	// Detection thresholds
	WindowSize           int
	MinConsecutiveUp     int
	PriceThresholdPct    float64
	VolumeThresholdPct   float64
	PriceDeltaPct        float64
	VolumeSpikePct       float64
	SoftMinConsecutiveUp int
	SoftPricePct         float64
	SoftVolumePct        float64

	// Storage
	StorageBackend string // "postgres" or "memory"
	DatabaseDSN    string
	ClickhouseDSN  string // optional event archive
	PoolMinConns   int32
	PoolMaxConns   int32
	ConnectTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	AcquirePolicy  string // "failfast" or "fallback"
	CacheTTL       time.Duration

	// Feed
	FeedBaseURL           string
	FeedTimeout           time.Duration
	FeedRequestsPerSecond int

	// Notifications
	TelegramBotToken   string
	TelegramChatID     string
	TelegramMaxRetries int
	TelegramRetryDelay time.Duration

	// HTTP surface (metrics, health, alert stream)
	ListenAddr string

	LogLevel string
}

// Load initializes configuration from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		TickInterval: getEnvDurationWithDefault("TICK_INTERVAL", 5*time.Second),
		Workers:      getEnvIntWithDefault("WORKERS", 4),

		WindowSize:           getEnvIntWithDefault("WINDOW_SIZE", 10),
		MinConsecutiveUp:     getEnvIntWithDefault("MIN_CONSECUTIVE_UP", 3),
		PriceThresholdPct:    getEnvFloatWithDefault("PRICE_THRESHOLD_PCT", 1.0),
		VolumeThresholdPct:   getEnvFloatWithDefault("VOLUME_THRESHOLD_PCT", 30.0),
		PriceDeltaPct:        getEnvFloatWithDefault("PRICE_DELTA_PCT", 1.0),
		VolumeSpikePct:       getEnvFloatWithDefault("VOLUME_SPIKE_PCT", 5.0),
		SoftMinConsecutiveUp: getEnvIntWithDefault("SOFT_MIN_CONSECUTIVE_UP", 2),
		SoftPricePct:         getEnvFloatWithDefault("SOFT_PRICE_PCT", 1.0),
		SoftVolumePct:        getEnvFloatWithDefault("SOFT_VOLUME_PCT", 5.0),

		StorageBackend: getEnvWithDefault("STORAGE_BACKEND", "postgres"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),
		ClickhouseDSN:  os.Getenv("CLICKHOUSE_DSN"),
		PoolMinConns:   int32(getEnvIntWithDefault("POOL_MIN_CONNS", 1)),
		PoolMaxConns:   int32(getEnvIntWithDefault("POOL_MAX_CONNS", 5)),
		ConnectTimeout: getEnvDurationWithDefault("CONNECT_TIMEOUT", 5*time.Second),
		MaxRetries:     getEnvIntWithDefault("MAX_RETRIES", 2),
		RetryBackoff:   getEnvDurationWithDefault("RETRY_BACKOFF", time.Second),
		AcquirePolicy:  getEnvWithDefault("ACQUIRE_POLICY", "failfast"),
		CacheTTL:       getEnvDurationWithDefault("CACHE_TTL", 0),

		FeedBaseURL:           getEnvWithDefault("FEED_BASE_URL", "https://indodax.com"),
		FeedTimeout:           getEnvDurationWithDefault("FEED_TIMEOUT", 10*time.Second),
		FeedRequestsPerSecond: getEnvIntWithDefault("FEED_REQUESTS_PER_SECOND", 2),

		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramMaxRetries: getEnvIntWithDefault("TELEGRAM_MAX_RETRIES", 3),
		TelegramRetryDelay: getEnvDurationWithDefault("TELEGRAM_RETRY_DELAY", time.Second),

		ListenAddr: getEnvWithDefault("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnvWithDefault("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
