// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package models

import "time"

// APIResponse is the standard response envelope used by every HTTP
// endpoint. Status is "success" or "error"; Error is populated only on
// failure.
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"items": [...], "cursors": {...}},
//	  "metadata": {"timestamp": "2026-08-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string       `json:"status"`
	Data     interface{}  `json:"data"`
	Metadata ResponseMeta `json:"metadata"`
	Error    *APIError    `json:"error,omitempty"`
}

// ResponseMeta carries response-level observability fields.
type ResponseMeta struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is the structured error payload.
//
// Common codes:
//   - VALIDATION_ERROR: invalid request parameters
//   - AUTHENTICATION_ERROR: missing or invalid credentials
//   - NOT_FOUND: resource does not exist
//   - FEED_ERROR: feed assembly failure
//   - SEED_FORBIDDEN: mock seeding disabled
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
