// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

// Package config loads and validates service configuration from
// layered sources: built-in defaults, an optional YAML file, and
// environment variables, in increasing precedence.
package config

import (
	"fmt"
	"time"

	"github.com/muselet/muselet/internal/feed"
)

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Feed     FeedConfig     `koanf:"feed"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the BadgerDB settings.
type DatabaseConfig struct {
	// Path is the Badger data directory. Empty selects an in-memory
	// database, for development and tests.
	Path string `koanf:"path"`

	// GCInterval is how often the value log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`

	// GCDiscardRatio is Badger's rewrite threshold for value log GC.
	GCDiscardRatio float64 `koanf:"gc_discard_ratio"`

	// SeedMockData populates the store with generated demo content at
	// startup.
	SeedMockData bool `koanf:"seed_mock_data"`
}

// FeedConfig holds feed engine tunables. Zero values fall back to the
// engine defaults.
type FeedConfig struct {
	DefaultLimit    int     `koanf:"default_limit"`
	MaxLimit        int     `koanf:"max_limit"`
	MaxPerUser      int     `koanf:"max_per_user"`
	MaxAlbumRatio   float64 `koanf:"max_album_ratio"`
	VideoBoost      float64 `koanf:"video_boost"`
	ShuffleStrength int     `koanf:"shuffle_strength"`
}

// CacheConfig holds the album preview cache settings.
type CacheConfig struct {
	PreviewCapacity int           `koanf:"preview_capacity"`
	PreviewTTL      time.Duration `koanf:"preview_ttl"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// JWTSecret signs access tokens. Requests are anonymous when
	// empty, and the following feed is unavailable.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout is the access token lifetime.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists allowed cross-origin request origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Feed.DefaultLimit > c.Feed.MaxLimit {
		return fmt.Errorf("feed.default_limit %d exceeds feed.max_limit %d", c.Feed.DefaultLimit, c.Feed.MaxLimit)
	}
	if c.Feed.MaxAlbumRatio < 0 || c.Feed.MaxAlbumRatio > 1 {
		return fmt.Errorf("feed.max_album_ratio %g out of range [0,1]", c.Feed.MaxAlbumRatio)
	}
	if c.Database.GCDiscardRatio <= 0 || c.Database.GCDiscardRatio >= 1 {
		return fmt.Errorf("database.gc_discard_ratio %g out of range (0,1)", c.Database.GCDiscardRatio)
	}
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	return nil
}

// FeedEngineConfig maps the service-level feed settings onto the
// engine's config, leaving unset fields at their engine defaults.
func (c *Config) FeedEngineConfig() *feed.Config {
	fc := feed.DefaultConfig()
	if c.Feed.DefaultLimit > 0 {
		fc.DefaultLimit = c.Feed.DefaultLimit
	}
	if c.Feed.MaxLimit > 0 {
		fc.MaxLimit = c.Feed.MaxLimit
	}
	if c.Feed.MaxPerUser > 0 {
		fc.MaxPerUser = c.Feed.MaxPerUser
	}
	if c.Feed.MaxAlbumRatio > 0 {
		fc.MaxAlbumRatio = c.Feed.MaxAlbumRatio
	}
	if c.Feed.VideoBoost > 0 {
		fc.VideoBoost = c.Feed.VideoBoost
	}
	if c.Feed.ShuffleStrength > 0 {
		fc.ShuffleStrength = c.Feed.ShuffleStrength
	}
	return fc
}
