// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"ARTICLE_DB_PATH" envDefault:"./data/article.db"`
	ServerHost string `env:"ARTICLE_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"ARTICLE_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"ARTICLE_ENV" envDefault:"development"`
	LogLevel   string `env:"ARTICLE_LOG_LEVEL" envDefault:"info"`
	UploadsDir string `env:"ARTICLE_UPLOADS_DIR" envDefault:"./uploads"`

	// RulesPath points at the JSON rule map granting per-category
	// permissions. Empty means no user is granted anything.
	RulesPath string `env:"ARTICLE_RULES_PATH"`

	// Cache configuration
	RedisURL    string `env:"ARTICLE_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix string `env:"ARTICLE_CACHE_PREFIX" envDefault:"article:"` // Redis key prefix
	CacheTTL    int    `env:"ARTICLE_CACHE_TTL" envDefault:"3600"`       // Default cache TTL in seconds

	// Rate limiting for public JSON endpoints, requests per second.
	SearchRateLimit float64 `env:"ARTICLE_SEARCH_RATE_LIMIT" envDefault:"10"`
	SearchRateBurst int     `env:"ARTICLE_SEARCH_RATE_BURST" envDefault:"20"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// SlogLevel maps the configured log level to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
