// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import (
	"math"
	"testing"
	"time"
)

func ageDaysAgo(now time.Time, days float64) time.Time {
	return now.Add(-time.Duration(days * float64(hoursPerDay) * float64(time.Hour)))
}

func TestPopularityScoreDecayBoundary(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		ageDays float64
		maxAge  float64
	}{
		{"at horizon", 30, 30},
		{"beyond horizon", 45, 30},
		{"far beyond", 400, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PopularityScore(100000, ageDaysAgo(now, tt.ageDays), now, tt.maxAge)
			if got != 0 {
				t.Errorf("score = %v, want 0: timeFactor clamps to zero at the horizon regardless of popularity", got)
			}
		})
	}
}

func TestRecencyBoostThresholds(t *testing.T) {
	tests := []struct {
		ageDays float64
		want    float64
	}{
		{0.99, 2.0},
		{1.0, 1.5},
		{2.99, 1.5},
		{3.0, 1.2},
		{6.99, 1.2},
		{7.0, 1.0},
		{30, 1.0},
	}

	for _, tt := range tests {
		if got := recencyBoost(tt.ageDays); got != tt.want {
			t.Errorf("recencyBoost(%v) = %v, want %v", tt.ageDays, got, tt.want)
		}
	}
}

func TestPopularityScoreComposition(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Age 5 days, horizon 30: timeFactor = 1 - 5/30, boost = 1.2.
	got := PopularityScore(300, ageDaysAgo(now, 5), now, 30)
	want := 300 * (1 - 5.0/30.0) * 1.2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func TestPopularityScoreFutureTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Store clock ahead of ours: treated as brand new, full boost.
	got := PopularityScore(100, now.Add(time.Hour), now, 30)
	want := 100 * 1.0 * 2.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func TestPopularityScoreZeroPopularity(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if got := PopularityScore(0, ageDaysAgo(now, 0.5), now, 30); got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}
