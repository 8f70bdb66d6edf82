// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import "time"

const hoursPerDay = 24

// Recency boost thresholds. Content under a day old is rewarded
// disproportionately; the steps are inclusive on the lower bound
// (age < 1 day gets 2.0, age == 1 day gets 1.5).
const (
	boostUnderOneDay    = 2.0
	boostUnderThreeDays = 1.5
	boostUnderSevenDays = 1.2
	boostBaseline       = 1.0
)

// PopularityScore converts a raw popularity counter and age into a
// time-weighted score:
//
//	score = popularity * timeFactor * recencyBoost
//
// where timeFactor decays linearly from 1 to 0 over maxAgeDays, so
// items at or beyond the horizon score zero regardless of popularity.
// The scorer is kind-agnostic; kind-specific boosts (e.g. video) are
// the caller's concern.
func PopularityScore(popularity int64, createdAt, now time.Time, maxAgeDays float64) float64 {
	ageDays := now.Sub(createdAt).Hours() / hoursPerDay
	if ageDays < 0 {
		// Clock skew between the store and this host; treat as brand new.
		ageDays = 0
	}

	if maxAgeDays <= 0 {
		return 0
	}

	timeFactor := 1 - ageDays/maxAgeDays
	if timeFactor < 0 {
		timeFactor = 0
	}

	return float64(popularity) * timeFactor * recencyBoost(ageDays)
}

// recencyBoost is a step function over item age in days.
func recencyBoost(ageDays float64) float64 {
	switch {
	case ageDays < 1:
		return boostUnderOneDay
	case ageDays < 3:
		return boostUnderThreeDays
	case ageDays < 7:
		return boostUnderSevenDays
	default:
		return boostBaseline
	}
}
