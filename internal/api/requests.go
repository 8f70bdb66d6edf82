// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

// HTTP request validation structs with go-playground/validator tags.
// Query parameters are parsed into these structs before handlers touch
// the feed engine.
package api

// DiscoverRequest represents the validated query parameters for the
// /discover endpoint and its tag variant.
//
// Fields:
//   - Limit: Page size (0 uses the configured default, values above the
//     maximum are clamped by the engine rather than rejected)
//   - Tag: Optional tag filter
//   - Sort: Feed mode (popular, following, or empty for discovery)
//   - MaxPerUser: Optional per-creator diversification cap override
//   - CursorAlbums, CursorMedia: Opaque continuation tokens; malformed
//     tokens are never a validation error, the engine degrades them to
//     a stream restart
type DiscoverRequest struct {
	Limit        int
	Tag          string `validate:"omitempty,max=64"`
	Sort         string `validate:"omitempty,oneof=popular following"`
	MaxPerUser   int    `validate:"min=0,max=50"`
	CursorAlbums string
	CursorMedia  string
}

// FollowRequest represents the validated request body for the follow
// and unfollow endpoints.
type FollowRequest struct {
	CreatorID string `json:"creatorId" validate:"required,min=1,max=128"`
}
