// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import "fmt"

// Config contains all tunable parameters of the feed engine.
type Config struct {
	// ScoreWeight is the multiplier applied to the popularity-decay
	// score when blending with the random term.
	// Default: 0.7.
	ScoreWeight float64 `json:"score_weight"`

	// RandomScale is the multiplier applied to the random term.
	// Default: 300 (0.3 * 1000, so random can reorder near-ties but
	// not overwhelm strongly popular items).
	RandomScale float64 `json:"random_scale"`

	// VideoBoost is the multiplicative score boost for video items,
	// applied by the assembler so the scorer stays kind-agnostic.
	// Default: 1.25.
	VideoBoost float64 `json:"video_boost"`

	// MaxPerUser is the default per-creator cap for diversification.
	// Default: 3.
	MaxPerUser int `json:"max_per_user"`

	// MaxRelaxation is how far the per-creator cap may grow beyond its
	// base before diversification gives up on reaching the target.
	// Default: 5.
	MaxRelaxation int `json:"max_relaxation"`

	// MaxAlbumRatio caps the album share of a page. Albums are a
	// minority content type by design; the exact value is tunable.
	// Default: 0.4.
	MaxAlbumRatio float64 `json:"max_album_ratio"`

	// AlbumScarcityThreshold triggers media backfill when available
	// albums drop below this fraction of the requested limit.
	// Default: 0.2.
	AlbumScarcityThreshold float64 `json:"album_scarcity_threshold"`

	// DefaultLimit is the page size used when the caller omits one.
	// Default: 20.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit is the hard cap on page size.
	// Default: 100.
	MaxLimit int `json:"max_limit"`

	// OversampleFactor multiplies the limit when fetching candidates,
	// so enough survive window filtering and diversification.
	// Default: 2.
	OversampleFactor int `json:"oversample_factor"`

	// OversampleFactorLarge replaces OversampleFactor for requests
	// above LargeLimitThreshold.
	// Default: 3.
	OversampleFactorLarge int `json:"oversample_factor_large"`

	// LargeLimitThreshold is the limit above which the large
	// oversample factor applies.
	// Default: 40.
	LargeLimitThreshold int `json:"large_limit_threshold"`

	// ShuffleStrength is the window of the final soft shuffle. The
	// ranking is already decided; this only perturbs adjacent
	// positions for visual variety.
	// Default: 10.
	ShuffleStrength int `json:"shuffle_strength"`

	// SeedStep perturbs the request seed between fallback attempts so
	// each attempt draws a distinct but traceable random stream.
	// Default: 0.173.
	SeedStep float64 `json:"seed_step"`

	// WindowOverlapDays is the overlap between consecutive pages'
	// time windows, for pagination continuity.
	// Default: 2.
	WindowOverlapDays float64 `json:"window_overlap_days"`

	// MinDecayDays is the floor for the decay horizon derived from a
	// page's time window.
	// Default: 30.
	MinDecayDays float64 `json:"min_decay_days"`

	// Fallbacks is the ordered ladder of progressively wider attempts
	// evaluated when the current window yields too few results. The
	// final stage must be unbounded so the loop always terminates with
	// a result.
	Fallbacks []FallbackStage `json:"fallbacks"`
}

// FallbackStage is one rung of the fallback ladder.
type FallbackStage struct {
	// MinWindowDays widens the requested window so it reaches at least
	// this many days back. Zero keeps the requested window unchanged.
	MinWindowDays float64 `json:"min_window_days"`

	// Unbounded disables age filtering entirely for this stage.
	Unbounded bool `json:"unbounded"`

	// DecayDays is the decay horizon for this stage. Zero derives it
	// from the widened window.
	DecayDays float64 `json:"decay_days"`

	// TargetFraction of the requested limit that must be met for this
	// stage's result to be accepted. Later stages accept partial
	// fulfillment rather than looping forever.
	TargetFraction float64 `json:"target_fraction"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		ScoreWeight:            0.7,
		RandomScale:            300,
		VideoBoost:             1.25,
		MaxPerUser:             3,
		MaxRelaxation:          5,
		MaxAlbumRatio:          0.4,
		AlbumScarcityThreshold: 0.2,
		DefaultLimit:           20,
		MaxLimit:               100,
		OversampleFactor:       2,
		OversampleFactorLarge:  3,
		LargeLimitThreshold:    40,
		ShuffleStrength:        10,
		SeedStep:               0.173,
		WindowOverlapDays:      2,
		MinDecayDays:           30,
		Fallbacks: []FallbackStage{
			{TargetFraction: 1.0},
			{MinWindowDays: 7, TargetFraction: 0.8},
			{MinWindowDays: 14, TargetFraction: 0.6},
			{MinWindowDays: 30, TargetFraction: 0.4},
			{MinWindowDays: 90, TargetFraction: 0.4},
			{Unbounded: true, DecayDays: 365, TargetFraction: 0.4},
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ScoreWeight < 0 {
		return fmt.Errorf("score_weight must be non-negative, got %f", c.ScoreWeight)
	}
	if c.RandomScale < 0 {
		return fmt.Errorf("random_scale must be non-negative, got %f", c.RandomScale)
	}
	if c.VideoBoost <= 0 {
		return fmt.Errorf("video_boost must be positive, got %f", c.VideoBoost)
	}
	if c.MaxPerUser < 1 {
		return fmt.Errorf("max_per_user must be positive, got %d", c.MaxPerUser)
	}
	if c.MaxRelaxation < 0 {
		return fmt.Errorf("max_relaxation must be non-negative, got %d", c.MaxRelaxation)
	}
	if c.MaxAlbumRatio < 0 || c.MaxAlbumRatio > 1 {
		return fmt.Errorf("max_album_ratio must be in [0, 1], got %f", c.MaxAlbumRatio)
	}
	if c.AlbumScarcityThreshold < 0 || c.AlbumScarcityThreshold > 1 {
		return fmt.Errorf("album_scarcity_threshold must be in [0, 1], got %f", c.AlbumScarcityThreshold)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit must be >= default_limit, got %d < %d", c.MaxLimit, c.DefaultLimit)
	}
	if c.OversampleFactor < 1 {
		return fmt.Errorf("oversample_factor must be positive, got %d", c.OversampleFactor)
	}
	if c.OversampleFactorLarge < c.OversampleFactor {
		return fmt.Errorf("oversample_factor_large must be >= oversample_factor, got %d < %d",
			c.OversampleFactorLarge, c.OversampleFactor)
	}
	if c.ShuffleStrength < 0 {
		return fmt.Errorf("shuffle_strength must be non-negative, got %d", c.ShuffleStrength)
	}
	if len(c.Fallbacks) == 0 {
		return fmt.Errorf("fallbacks must contain at least one stage")
	}
	last := c.Fallbacks[len(c.Fallbacks)-1]
	if !last.Unbounded {
		return fmt.Errorf("final fallback stage must be unbounded")
	}
	for i, stage := range c.Fallbacks {
		if stage.TargetFraction <= 0 || stage.TargetFraction > 1 {
			return fmt.Errorf("fallbacks[%d].target_fraction must be in (0, 1], got %f", i, stage.TargetFraction)
		}
		if stage.MinWindowDays < 0 {
			return fmt.Errorf("fallbacks[%d].min_window_days must be non-negative, got %f", i, stage.MinWindowDays)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Fallbacks = make([]FallbackStage, len(c.Fallbacks))
	copy(cp.Fallbacks, c.Fallbacks)
	return &cp
}
