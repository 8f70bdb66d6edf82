// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/muselet/muselet/internal/auth"
	"github.com/muselet/muselet/internal/config"
	"github.com/muselet/muselet/internal/feed"
	"github.com/muselet/muselet/internal/logging"
	"github.com/muselet/muselet/internal/metrics"
	"github.com/muselet/muselet/internal/models"
	"github.com/muselet/muselet/internal/store"
)

// Handler serves the discovery API endpoints.
type Handler struct {
	cfg       *config.Config
	engine    *feed.Engine
	store     *store.BadgerStore
	db        *badger.DB
	startTime time.Time
}

// NewHandler creates the API handler.
func NewHandler(cfg *config.Config, engine *feed.Engine, st *store.BadgerStore, db *badger.DB) *Handler {
	return &Handler{
		cfg:       cfg,
		engine:    engine,
		store:     st,
		db:        db,
		startTime: time.Now(),
	}
}

// Discover handles GET /api/v1/discover. Query parameters select the
// feed mode: sort=popular, sort=following, tag=<tag>, or none for the
// default diversified discovery feed.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, r.URL.Query().Get("tag"))
}

// DiscoverByTag handles GET /api/v1/discover/tags/{tag}.
func (h *Handler) DiscoverByTag(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, chi.URLParam(r, "tag"))
}

func (h *Handler) serveFeed(w http.ResponseWriter, r *http.Request, tag string) {
	q := r.URL.Query()

	req := DiscoverRequest{
		Limit:        getIntParam(r, "limit", 0),
		Tag:          tag,
		Sort:         q.Get("sort"),
		MaxPerUser:   getIntParam(r, "max_per_user", 0),
		CursorAlbums: q.Get("cursor_albums"),
		CursorMedia:  q.Get("cursor_media"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	params := feed.Params{
		Limit:        req.Limit,
		Tag:          req.Tag,
		Sort:         req.Sort,
		MaxPerUser:   req.MaxPerUser,
		CursorAlbums: req.CursorAlbums,
		CursorMedia:  req.CursorMedia,
		UserID:       auth.UserIDFromContext(r.Context()),
	}

	start := time.Now()
	page, err := h.engine.GetDiscoverFeed(r.Context(), params)
	if err != nil {
		if errors.Is(err, feed.ErrUnauthorized) {
			respondError(w, r, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required for the following feed", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "FEED_ERROR", "Failed to assemble feed", err)
		return
	}

	mode := feedMode(params)
	relaxed := page.AppliedMaxPerOwner() > h.effectiveCap(req.MaxPerUser)
	metrics.RecordFeedPage(mode, len(page.Items), page.FallbackAttempt(), relaxed)
	if n := page.DegradedCursors(); n > 0 {
		metrics.FeedCursorDecodeFailures.Add(float64(n))
	}

	logging.Ctx(r.Context()).Debug().
		Str("mode", mode).
		Int("items", len(page.Items)).
		Int("fallback_attempt", page.FallbackAttempt()).
		Dur("elapsed", time.Since(start)).
		Msg("feed page assembled")

	respondSuccess(w, r, http.StatusOK, page)
}

// feedMode names the selected feed mode for metrics and logs.
func feedMode(p feed.Params) string {
	switch {
	case p.Sort == feed.SortPopular:
		return "popular"
	case p.Sort == feed.SortFollowing:
		return "following"
	case p.Tag != "":
		return "tag"
	default:
		return "discover"
	}
}

// effectiveCap resolves the per-creator cap the engine will apply
// before relaxation.
func (h *Handler) effectiveCap(requested int) int {
	if requested > 0 {
		return requested
	}
	if h.cfg != nil && h.cfg.Feed.MaxPerUser > 0 {
		return h.cfg.Feed.MaxPerUser
	}
	return feed.DefaultConfig().MaxPerUser
}

// Follow handles POST /api/v1/follows.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	h.mutateFollow(w, r, h.store.Follow)
}

// Unfollow handles DELETE /api/v1/follows.
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.mutateFollow(w, r, h.store.Unfollow)
}

func (h *Handler) mutateFollow(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, creatorID string) error) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, r, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required", nil)
		return
	}

	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := op(r.Context(), userID, req.CreatorID); err != nil {
		respondError(w, r, http.StatusInternalServerError, "STORE_ERROR", "Failed to update follow relationship", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"creatorId": req.CreatorID,
	})
}

// ListFollowing handles GET /api/v1/follows.
func (h *Handler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, r, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required", nil)
		return
	}

	creators, err := h.store.ListFollowing(r.Context(), userID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "STORE_ERROR", "Failed to list followed creators", err)
		return
	}
	if creators == nil {
		creators = []string{}
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"creators": creators,
	})
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && !h.db.IsClosed()

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"status":             status,
		"database_connected": dbConnected,
		"uptime":             time.Since(h.startTime).Seconds(),
	})
}

// HealthLive handles GET /api/v1/health/live. Returns 200 whenever the
// process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready. Returns 503 until the
// database is open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := h.db != nil && !h.db.IsClosed()

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, r, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"database_connected": ready,
			"uptime":             time.Since(h.startTime).Seconds(),
		},
		Metadata: models.ResponseMeta{Timestamp: time.Now()},
	})
}
