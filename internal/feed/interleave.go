// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import "github.com/muselet/muselet/internal/models"

// mediaPerCycle and albumsPerCycle bias the page toward media, with an
// album appearing roughly every third slot when both are abundant.
const (
	mediaPerCycle  = 2
	albumsPerCycle = 1
)

// interleave merges the selected album and media lists in a repeating
// cycle of up to two media then one album, until the page is full or
// both lists are exhausted. When one list runs dry the other continues
// filling the remaining slots.
func interleave(albums, media []models.FeedItem, limit int) []models.FeedItem {
	out := make([]models.FeedItem, 0, limit)
	ai, mi := 0, 0

	for len(out) < limit && (ai < len(albums) || mi < len(media)) {
		for n := 0; n < mediaPerCycle && mi < len(media) && len(out) < limit; n++ {
			out = append(out, media[mi])
			mi++
		}
		for n := 0; n < albumsPerCycle && ai < len(albums) && len(out) < limit; n++ {
			out = append(out, albums[ai])
			ai++
		}
	}

	return out
}

// softShuffle perturbs adjacent positions for visual variety. Each
// element swaps forward within a window of at most strength positions,
// so the overall ranking survives while exact ordering varies between
// requests. The ranking has already been decided; this is cosmetic.
func softShuffle(items []models.FeedItem, rng *Rand, strength int) {
	if strength < 1 {
		return
	}

	for i := range items {
		span := len(items) - i
		if span > strength {
			span = strength
		}
		j := i + rng.Intn(span)
		items[i], items[j] = items[j], items[i]
	}
}
