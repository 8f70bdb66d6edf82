// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import (
	"fmt"
	"math"
	"time"
)

// TimeWindow is an inclusive age range, in days before now, that an
// item's creation time must fall into to be eligible. MaxAgeDays feeds
// the decay calculation independently of the eligibility range.
// A nil *TimeWindow means "no age filtering, decay only".
type TimeWindow struct {
	StartDays  float64
	EndDays    float64
	MaxAgeDays float64
}

// Contains reports whether an item created at t falls inside the
// window as of now.
func (w *TimeWindow) Contains(createdAt, now time.Time) bool {
	ageDays := now.Sub(createdAt).Hours() / hoursPerDay
	if ageDays < 0 {
		ageDays = 0
	}
	return ageDays >= w.StartDays && ageDays <= w.EndDays
}

// Label returns a human-readable description for response metadata.
func (w *TimeWindow) Label() string {
	if w == nil {
		return "all time"
	}
	return fmt.Sprintf("%g-%g days", w.StartDays, w.EndDays)
}

// windowForDepth derives the eligibility window for a pagination
// depth. Each successive page looks one day further back, with a
// configurable overlap for continuity, and the decay horizon never
// drops below the configured floor.
func windowForDepth(depth int, cfg *Config) *TimeWindow {
	start := float64(depth)
	end := start + cfg.WindowOverlapDays
	return &TimeWindow{
		StartDays:  start,
		EndDays:    end,
		MaxAgeDays: math.Max(cfg.MinDecayDays, end),
	}
}

// stageWindow widens the requested window per a fallback stage.
// Widened stages look from now back to at least MinWindowDays; the
// unbounded stage drops filtering entirely.
func stageWindow(requested *TimeWindow, stage FallbackStage) *TimeWindow {
	if stage.Unbounded {
		return nil
	}
	if stage.MinWindowDays == 0 || requested == nil {
		return requested
	}

	end := stage.MinWindowDays
	if requested.EndDays > end {
		end = requested.EndDays
	}
	return &TimeWindow{
		StartDays:  0,
		EndDays:    end,
		MaxAgeDays: math.Max(requested.MaxAgeDays, end),
	}
}

// stageDecayDays resolves the decay horizon for a stage.
func stageDecayDays(w *TimeWindow, stage FallbackStage, cfg *Config) float64 {
	if stage.DecayDays > 0 {
		return stage.DecayDays
	}
	if w != nil {
		return w.MaxAgeDays
	}
	return cfg.MinDecayDays
}

// stageTarget is the minimum combined count a stage must reach, with a
// floor of one so the engine never demands nothing.
func stageTarget(limit int, fraction float64) int {
	target := int(math.Ceil(float64(limit) * fraction))
	if target < 1 {
		target = 1
	}
	return target
}

// planResult is the accepted outcome of the fallback loop.
type planResult struct {
	Albums []ScoredCandidate
	Media  []ScoredCandidate

	// AppliedMaxPerOwner is the relaxed cap the accepted attempt used.
	AppliedMaxPerOwner int

	// Attempt is the index of the accepted ladder stage.
	Attempt int

	// Window is the accepted stage's eligibility window (nil when the
	// unbounded stage was reached).
	Window *TimeWindow
}

// runFallback evaluates the fallback ladder over the candidate pool
// until an attempt meets its target or the ladder is exhausted. The
// last stage accepts any count, so the loop always terminates with a
// result even for empty input.
//
// Each attempt re-scores all candidates against its own window and
// decay horizon with a per-attempt seed, so repeated invocation within
// one request stays reproducible.
func runFallback(albums, media []Candidate, requested *TimeWindow, limit, maxPerOwner int, baseSeed float64, now time.Time, cfg *Config) planResult {
	for i, stage := range cfg.Fallbacks {
		w := stageWindow(requested, stage)
		decay := stageDecayDays(w, stage, cfg)
		rng := NewRand(AttemptSeed(baseSeed, i, cfg.SeedStep))

		eligibleAlbums := filterByWindow(albums, w, now)
		eligibleMedia := filterByWindow(media, w, now)

		scoredAlbums := scoreCandidates(eligibleAlbums, now, decay, rng, cfg)
		scoredMedia := scoreCandidates(eligibleMedia, now, decay, rng, cfg)
		sortByScore(scoredAlbums)
		sortByScore(scoredMedia)

		target := stageTarget(limit, stage.TargetFraction)
		result := DiversifyWithRelaxation(scoredAlbums, scoredMedia, maxPerOwner, target, cfg.MaxRelaxation)

		lastStage := i == len(cfg.Fallbacks)-1
		if result.CombinedCount >= target || lastStage {
			return planResult{
				Albums:             result.Albums,
				Media:              result.Media,
				AppliedMaxPerOwner: result.AppliedMaxPerOwner,
				Attempt:            i,
				Window:             w,
			}
		}
	}

	// Unreachable: Validate() requires an unbounded final stage.
	return planResult{}
}

// filterByWindow drops candidates outside the window. Recycled and
// backfill candidates pass through on every attempt.
func filterByWindow(cands []Candidate, w *TimeWindow, now time.Time) []Candidate {
	if w == nil {
		return cands
	}

	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.windowExempt() || w.Contains(c.Item.CreatedAt(), now) {
			out = append(out, c)
		}
	}
	return out
}
