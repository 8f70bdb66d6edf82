// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import (
	"sort"
	"time"

	"github.com/muselet/muselet/internal/models"
)

// Candidate is an album or media item eligible for a feed page before
// scoring and filtering.
type Candidate struct {
	Item models.FeedItem

	// Recycled marks items re-fetched from the start of an exhausted
	// stream. Recycled items are exempt from window age filtering:
	// they were deliberately fetched from outside the chronological
	// cursor to keep a thin stream non-empty.
	Recycled bool

	// Additional marks extra media fetched to compensate for album
	// scarcity. Also exempt from window age filtering.
	Additional bool
}

// windowExempt reports whether the candidate bypasses age filtering.
func (c Candidate) windowExempt() bool {
	return c.Recycled || c.Additional
}

// ScoredCandidate pairs a candidate with its combined score for one
// fallback attempt. Scores are computed fresh per request and never
// persisted; higher sorts first.
type ScoredCandidate struct {
	Candidate

	Score float64
}

// albumCandidates wraps an album list, tagging recycled fetches.
func albumCandidates(albums []models.Album, recycled bool) []Candidate {
	out := make([]Candidate, 0, len(albums))
	for _, a := range albums {
		out = append(out, Candidate{Item: models.AlbumItem(a), Recycled: recycled})
	}
	return out
}

// mediaCandidates wraps a media list, tagging backfill fetches.
func mediaCandidates(media []models.Media, additional bool) []Candidate {
	out := make([]Candidate, 0, len(media))
	for _, m := range media {
		out = append(out, Candidate{Item: models.MediaItem(m), Additional: additional})
	}
	return out
}

// scoreCandidates computes combined scores for one fallback attempt:
// the time-weighted popularity score blended with a seeded random
// term, plus the video boost applied here to keep the scorer
// kind-agnostic.
func scoreCandidates(cands []Candidate, now time.Time, decayDays float64, rng *Rand, cfg *Config) []ScoredCandidate {
	out := make([]ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		score := PopularityScore(c.Item.Popularity(), c.Item.CreatedAt(), now, decayDays)
		if c.Item.Kind == models.KindVideo {
			score *= cfg.VideoBoost
		}
		combined := score*cfg.ScoreWeight + rng.Float64()*cfg.RandomScale
		out = append(out, ScoredCandidate{Candidate: c, Score: combined})
	}
	return out
}

// sortByScore orders candidates by combined score descending. Ties are
// largely pre-broken by the random term; the ID tie-break makes the
// order fully deterministic for equal scores.
func sortByScore(cands []ScoredCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Item.ID() < cands[j].Item.ID()
	})
}
