// Package config loads runtime configuration from environment variables,
// optionally layered over a YAML file named by CONFIG_FILE. Environment
// variables always win; file values fill the gaps; defaults cover the rest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the papertrade service.
type Config struct {
	Port     int
	LogLevel string

	// Guard parameters.
	RateLimitMax      int
	RateLimitWindow   time.Duration
	MaxTradesPerDay   int
	MaxTradeValue     float64
	IdempotencyBucket time.Duration
	IdempotencyTTL    time.Duration
	SweepInterval     time.Duration

	// Market-data provider. An empty QuoteBaseURL selects the built-in
	// static provider (simulation mode).
	QuoteBaseURL string
	QuoteAPIKey  string
	QuoteTimeout time.Duration

	// Persistence. An empty SQLitePath selects the in-memory store.
	SQLitePath string

	// Default starting balance for new accounts.
	StartingCash float64

	// HTTP server.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration, applies defaults, and validates values. It
// returns an error for any invalid value.
func Load() (*Config, error) {
	fileVals, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	lookup := func(key, defaultVal string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v := fileVals[strings.ToLower(key)]; v != "" {
			return v
		}
		return defaultVal
	}

	port, err := getInt(lookup, "PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := lookup("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	rateLimitMax, err := getInt(lookup, "RATE_LIMIT_MAX", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX: %w", err)
	}
	if rateLimitMax < 1 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX: must be >= 1")
	}

	rateLimitWindow, err := getDuration(lookup, "RATE_LIMIT_WINDOW", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	maxTradesPerDay, err := getInt(lookup, "MAX_TRADES_PER_DAY", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TRADES_PER_DAY: %w", err)
	}
	if maxTradesPerDay < 1 {
		return nil, fmt.Errorf("invalid MAX_TRADES_PER_DAY: must be >= 1")
	}

	maxTradeValue, err := getFloat(lookup, "MAX_TRADE_VALUE", 2000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TRADE_VALUE: %w", err)
	}
	if maxTradeValue <= 0 {
		return nil, fmt.Errorf("invalid MAX_TRADE_VALUE: must be > 0")
	}

	idempotencyBucket, err := getDuration(lookup, "IDEMPOTENCY_BUCKET", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_BUCKET: %w", err)
	}

	idempotencyTTL, err := getDuration(lookup, "IDEMPOTENCY_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	sweepInterval, err := getDuration(lookup, "SWEEP_INTERVAL", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}

	quoteTimeout, err := getDuration(lookup, "QUOTE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: %w", err)
	}

	startingCash, err := getFloat(lookup, "STARTING_CASH", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}
	if startingCash < 0 {
		return nil, fmt.Errorf("invalid STARTING_CASH: must be >= 0")
	}

	readTimeout, err := getDuration(lookup, "READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration(lookup, "WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration(lookup, "IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration(lookup, "SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		RateLimitMax:      rateLimitMax,
		RateLimitWindow:   rateLimitWindow,
		MaxTradesPerDay:   maxTradesPerDay,
		MaxTradeValue:     maxTradeValue,
		IdempotencyBucket: idempotencyBucket,
		IdempotencyTTL:    idempotencyTTL,
		SweepInterval:     sweepInterval,
		QuoteBaseURL:      lookup("QUOTE_BASE_URL", ""),
		QuoteAPIKey:       lookup("QUOTE_API_KEY", ""),
		QuoteTimeout:      quoteTimeout,
		SQLitePath:        lookup("SQLITE_PATH", ""),
		StartingCash:      startingCash,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ShutdownTimeout:   shutdownTimeout,
	}, nil
}

// loadFile parses the YAML file at path into a flat key → value map. Keys
// are the lowercased forms of the env var names (e.g. "rate_limit_max").
// An empty path means no file.
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vals := make(map[string]string)
	if err := yaml.Unmarshal(data, &vals); err != nil {
		return nil, err
	}
	return vals, nil
}

type lookupFunc func(key, defaultVal string) string

func getInt(lookup lookupFunc, key string, defaultVal int) (int, error) {
	v := lookup(key, "")
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(lookup lookupFunc, key string, defaultVal float64) (float64, error) {
	v := lookup(key, "")
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(lookup lookupFunc, key string, defaultVal time.Duration) (time.Duration, error) {
	v := lookup(key, "")
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
