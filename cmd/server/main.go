// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

// Package main is the entry point for the Muselet discovery server.
//
// Muselet serves personalized discovery feeds for a content-sharing
// platform: albums and standalone media ranked by time-windowed
// popularity, diversified per owner, and paginated with dual cursors.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config file, and environment (Koanf v2)
//  2. Logging: zerolog, JSON or console output
//  3. Storage: BadgerDB key-value store with sort-key indexes
//  4. Feed engine: scoring, diversification, fallback widening
//  5. Authentication: optional JWT bearer tokens
//  6. HTTP server: chi router under a suture supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, BADGER_PATH, JWT_SECRET, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Example Usage
//
// Development with seeded demo content:
//
//	export SEED_MOCK_DATA=true
//	export LOG_FORMAT=console
//	./muselet
//
// Production with JWT authentication:
//
//	export BADGER_PATH=/data/muselet
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export CORS_ORIGINS=https://app.example.com
//	./muselet
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (configurable timeout)
//   - Closes the Badger store
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"

	"github.com/muselet/muselet/internal/api"
	"github.com/muselet/muselet/internal/auth"
	"github.com/muselet/muselet/internal/cache"
	"github.com/muselet/muselet/internal/config"
	"github.com/muselet/muselet/internal/feed"
	"github.com/muselet/muselet/internal/logging"
	"github.com/muselet/muselet/internal/store"
	"github.com/muselet/muselet/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Bool("auth_enabled", cfg.Security.JWTSecret != "").
		Msg("Starting Muselet")

	db, err := openBadger(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	st := store.NewBadgerStore(db, logging.With().Str("component", "store").Logger())

	// Seed demo content if enabled (for development and CI)
	if cfg.Database.SeedMockData {
		logging.Info().Msg("Mock data seeding enabled (SEED_MOCK_DATA=true)")
		if err := st.SeedMockData(context.Background()); err != nil {
			logging.Fatal().Err(err).Msg("Failed to seed mock data")
		}
	}

	previews := cache.NewPreviewCache(cfg.Cache.PreviewCapacity, cfg.Cache.PreviewTTL)

	engine, err := feed.NewEngine(cfg.FeedEngineConfig(), st,
		logging.With().Str("component", "feed").Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create feed engine")
	}
	engine.SetFollowingProvider(st)
	engine.SetPreviewCache(previews)

	var jwtManager *auth.JWTManager
	if cfg.Security.JWTSecret != "" {
		jwtManager, err = auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("JWT_SECRET not set, all requests are anonymous")
	}

	handler := api.NewHandler(cfg, engine, st, db)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:     cfg.Security.CORSOrigins,
		RateLimitReqs:   cfg.Security.RateLimitReqs,
		RateLimitWindow: cfg.Security.RateLimitWindow,
		JWT:             jwtManager,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	tree.AddDataService(&supervisor.GCService{
		DB:           db,
		Interval:     cfg.Database.GCInterval,
		DiscardRatio: cfg.Database.GCDiscardRatio,
		Logger:       logging.With().Str("component", "gc").Logger(),
	})
	tree.AddAPIService(&supervisor.HTTPService{
		Addr:            cfg.Server.Addr(),
		Handler:         router.Setup(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logging.With().Str("component", "http").Logger(),
	})
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Muselet stopped gracefully")
}

// openBadger opens the Badger store at path, or an in-memory store
// when path is empty.
func openBadger(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	// Badger's own logger is noisy; everything relevant surfaces
	// through the GC service logs.
	opts.Logger = nil
	return badger.Open(opts)
}
