// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import (
	"encoding/base64"

	"github.com/goccy/go-json"

	"github.com/muselet/muselet/internal/models"
)

// depthField is the engine-private cursor field carrying pagination
// depth. It is stripped before the continuation key reaches the store.
const depthField = "depth"

// DecodeCursor decodes an opaque continuation token into the
// underlying key-value map. An absent or malformed token yields nil:
// pagination degrades to "start over" rather than erroring, so decode
// failures are reported via the second return value for logging only.
func DecodeCursor(token string) (models.ContinuationKey, bool) {
	if token == "" {
		return nil, true
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, false
	}

	var state models.ContinuationKey
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false
	}

	return state, true
}

// EncodeCursor encodes a continuation key into an opaque token.
// A nil state returns the empty string, which the API layer renders as
// JSON null to signal end-of-stream.
func EncodeCursor(state models.ContinuationKey) string {
	if state == nil {
		return ""
	}

	data, err := json.Marshal(state)
	if err != nil {
		// Unreachable for map[string]any built from decoded JSON and
		// scalar depth values.
		return ""
	}

	return base64.URLEncoding.EncodeToString(data)
}

// SplitDepth extracts and removes the depth field from a decoded
// cursor, returning the store-facing remainder. The store must never
// see engine-private fields.
func SplitDepth(state models.ContinuationKey) (models.ContinuationKey, int) {
	if state == nil {
		return nil, 0
	}

	depth := 0
	if v, ok := state[depthField]; ok {
		switch n := v.(type) {
		case float64:
			depth = int(n)
		case int:
			depth = n
		}
		delete(state, depthField)
	}

	if len(state) == 0 {
		return nil, depth
	}
	return state, depth
}

// WithDepth returns a copy of the continuation key with the depth
// field added, ready for encoding. A nil key with depth still encodes,
// so a recycled stream can carry depth without a store position.
func WithDepth(state models.ContinuationKey, depth int) models.ContinuationKey {
	out := make(models.ContinuationKey, len(state)+1)
	for k, v := range state {
		out[k] = v
	}
	out[depthField] = depth
	return out
}
