// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/muselet/muselet/internal/logging"
)

// SeedMockData handles POST /api/v1/admin/seed. It populates the store
// with a demo catalog and is blocked outside development, CI, and
// explicitly opted-in deployments.
func (h *Handler) SeedMockData(w http.ResponseWriter, r *http.Request) {
	env := os.Getenv("GO_ENV")
	isCI := os.Getenv("CI") == "true"
	isDev := env == "development" || env == "dev" || env == ""
	optedIn := h.cfg != nil && h.cfg.Database.SeedMockData

	if env == "production" && !isCI {
		logging.Warn().Str("go_env", env).Msg("Blocked seed attempt in production environment")
		respondError(w, r, http.StatusForbidden, "SEED_FORBIDDEN", "Seeding is not allowed in production environments", nil)
		return
	}
	if !isCI && !isDev && !optedIn {
		respondError(w, r, http.StatusForbidden, "SEED_NOT_ALLOWED", "Seeding requires database.seed_mock_data or a CI environment", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := h.store.SeedMockData(ctx); err != nil {
		respondError(w, r, http.StatusInternalServerError, "SEED_FAILED", "Failed to seed mock data", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"message": "Mock catalog seeded",
	})
}
