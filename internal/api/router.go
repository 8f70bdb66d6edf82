// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muselet/muselet/internal/auth"
	"github.com/muselet/muselet/internal/middleware"
)

// RouterConfig holds the HTTP surface configuration.
type RouterConfig struct {
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration

	// JWT is optional; when nil all requests are anonymous and the
	// following feed and follow management return 401.
	JWT *auth.JWTManager
}

// Router wires handlers and middleware into the HTTP surface.
type Router struct {
	handler *Handler
	cfg     RouterConfig
}

// NewRouter creates the router.
func NewRouter(handler *Handler, cfg RouterConfig) *Router {
	if cfg.RateLimitReqs <= 0 {
		cfg.RateLimitReqs = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	return &Router{handler: handler, cfg: cfg}
}

// Health endpoints get a permissive limit so monitors can poll freely.
var healthRateLimit = 1000

// Setup builds the chi handler tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(healthRateLimit, time.Minute))
		r.Get("/", rt.handler.Health)
		r.Get("/live", rt.handler.HealthLive)
		r.Get("/ready", rt.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))
		r.Use(middleware.PrometheusMetrics)
		r.Use(rt.authenticate())

		r.Get("/discover", rt.handler.Discover)
		r.Get("/discover/tags/{tag}", rt.handler.DiscoverByTag)

		r.Get("/follows", rt.handler.ListFollowing)
		r.Post("/follows", rt.handler.Follow)
		r.Delete("/follows", rt.handler.Unfollow)

		r.Post("/admin/seed", rt.handler.SeedMockData)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// authenticate returns the JWT middleware, or a pass-through when no
// JWT manager is configured. Anonymous requests always pass; the
// middleware only rejects requests carrying an invalid token.
func (rt *Router) authenticate() func(http.Handler) http.Handler {
	if rt.cfg.JWT == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rt.cfg.JWT.Middleware
}
