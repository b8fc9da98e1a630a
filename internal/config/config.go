package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the BrandPulse server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Analysis AnalysisConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	LogLevel           string
	RateLimitPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

// AnalysisConfig controls the insight endpoints. Each analysis kind caches
// its results for its own TTL.
type AnalysisConfig struct {
	Timeout       time.Duration
	ClusterTTL    time.Duration
	TrendTTL      time.Duration
	GapTTL        time.Duration
	SuggestionTTL time.Duration
	LexiconPath   string
}

const (
	minCacheTTL = time.Minute
	maxCacheTTL = 24 * time.Hour
)

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("BRANDPULSE_PORT", 8080),
			Env:                envString("BRANDPULSE_ENV", "development"),
			LogLevel:           strings.ToLower(envString("LOG_LEVEL", "info")),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Analysis: AnalysisConfig{
			Timeout:       envDuration("ANALYSIS_TIMEOUT", 30*time.Second),
			ClusterTTL:    envDuration("CLUSTER_CACHE_TTL", 30*time.Minute),
			TrendTTL:      envDuration("TREND_CACHE_TTL", 15*time.Minute),
			GapTTL:        envDuration("GAP_CACHE_TTL", 60*time.Minute),
			SuggestionTTL: envDuration("SUGGESTION_CACHE_TTL", 60*time.Minute),
			LexiconPath:   os.Getenv("LEXICON_PATH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	return validLogLevels[c.Server.LogLevel]
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if _, ok := validLogLevels[c.Server.LogLevel]; !ok {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if c.Server.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.Server.RateLimitPerMinute)
	}

	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT must be positive, got %s", c.Analysis.Timeout)
	}

	ttls := []struct {
		name string
		ttl  time.Duration
	}{
		{"CLUSTER_CACHE_TTL", c.Analysis.ClusterTTL},
		{"TREND_CACHE_TTL", c.Analysis.TrendTTL},
		{"GAP_CACHE_TTL", c.Analysis.GapTTL},
		{"SUGGESTION_CACHE_TTL", c.Analysis.SuggestionTTL},
	}
	for _, t := range ttls {
		if t.ttl < minCacheTTL || t.ttl > maxCacheTTL {
			return fmt.Errorf("%s must be between %s and %s, got %s", t.name, minCacheTTL, maxCacheTTL, t.ttl)
		}
	}

	if c.Analysis.LexiconPath != "" {
		if _, err := os.Stat(c.Analysis.LexiconPath); err != nil {
			return fmt.Errorf("LEXICON_PATH: %w", err)
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
