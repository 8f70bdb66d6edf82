// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import "math"

// Park-Miller minimal standard generator constants.
const (
	lcgMultiplier = 16807
	lcgModulus    = 2147483647
)

// Rand is a deterministic pseudo-random stream seeded from a float in
// [0, 1). It blends randomness into rankings without true
// nondeterminism breaking pagination continuity within one request.
// Not safe for concurrent use; each request constructs its own.
type Rand struct {
	state int64
}

// NewRand creates a generator from a seed in [0, 1). Seeds outside the
// range are folded back via their fractional part.
func NewRand(seed float64) *Rand {
	frac := math.Mod(seed, 1)
	if frac < 0 {
		frac += 1
	}
	return &Rand{state: int64(frac*(lcgModulus-1)) + 1}
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	r.state = (r.state * lcgMultiplier) % lcgModulus
	return float64(r.state-1) / (lcgModulus - 1)
}

// Intn returns the next value in [0, n). n must be positive.
func (r *Rand) Intn(n int) int {
	return int(r.Float64() * float64(n))
}

// AttemptSeed derives the seed for fallback attempt i from a base
// seed, stepping by a fixed irrational-ish increment so consecutive
// attempts draw distinct but reproducible streams.
func AttemptSeed(base float64, attempt int, step float64) float64 {
	return math.Mod(base+float64(attempt)*step, 1)
}
