// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

/*
Package feed implements the discovery feed ranking engine.

The engine assembles a personalized, diversified, cursor-paginated page
of albums and media from a store that has no native "ranked feed" query
primitive. It is built from small, separately testable parts:

  - Cursor codec: opaque base64 tokens carrying the store's native
    continuation key plus the engine's pagination depth.
  - Time-weighted popularity scorer: linear decay over a configurable
    horizon with a step recency boost for very fresh content.
  - Seeded random generator: a Park-Miller LCG so the random blend is
    reproducible within one request's fallback loop.
  - Diversification: a greedy per-creator cap with adaptive relaxation
    when the cap over-constrains sparse result sets.
  - Fallback planner: a fixed ladder of progressively wider time
    windows evaluated until a minimum result count is met.
  - Assembler: the public entry point; fetches candidates, orchestrates
    the above, interleaves albums and media, and re-encodes cursors.

All per-request state (seed, depth, limits) is passed through function
arguments; the engine holds no mutable request state and is safe for
concurrent use.
*/
package feed
