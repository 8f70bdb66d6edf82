// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

// Package api exposes the discovery service over HTTP using the Chi
// router. It validates requests with go-playground/validator, wraps
// every payload in a standard response envelope, and maps feed engine
// errors to HTTP status codes.
package api
