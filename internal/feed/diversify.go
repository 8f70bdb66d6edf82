// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

// DiversifyResult is the outcome of one diversification pass over the
// album and media candidate lists.
type DiversifyResult struct {
	// Albums and Media preserve the relative order of their inputs.
	Albums []ScoredCandidate
	Media  []ScoredCandidate

	// AppliedMaxPerOwner is the per-creator cap actually used after
	// any relaxation. Never below the base cap.
	AppliedMaxPerOwner int

	// CombinedCount is len(Albums) + len(Media).
	CombinedCount int
}

// DiversifyByOwner emits items greedily in order, admitting an item
// only while its creator's running count is below maxPerOwner. Items
// from creators already at the cap are dropped, not deferred, so the
// output is an order-preserving subsequence of the input.
func DiversifyByOwner(items []ScoredCandidate, maxPerOwner int) []ScoredCandidate {
	if maxPerOwner < 1 {
		maxPerOwner = 1
	}

	out := make([]ScoredCandidate, 0, len(items))
	perOwner := make(map[string]int)

	for _, sc := range items {
		owner := sc.Item.OwnerID()
		if perOwner[owner] >= maxPerOwner {
			continue
		}
		perOwner[owner]++
		out = append(out, sc)
	}

	return out
}

// DiversifyWithRelaxation applies the per-creator cap to both lists,
// relaxing the cap one step at a time while the combined output falls
// short of minCombinedTarget, up to maxRelaxation steps beyond the
// base cap. A dominant creator can therefore contribute at most
// base+maxRelaxation items even under full relaxation.
func DiversifyWithRelaxation(albums, media []ScoredCandidate, baseMaxPerOwner, minCombinedTarget, maxRelaxation int) DiversifyResult {
	base := baseMaxPerOwner
	if base < 1 {
		base = 1
	}

	applied := base
	for {
		outAlbums := DiversifyByOwner(albums, applied)
		outMedia := DiversifyByOwner(media, applied)
		combined := len(outAlbums) + len(outMedia)

		if combined >= minCombinedTarget || applied >= base+maxRelaxation {
			return DiversifyResult{
				Albums:             outAlbums,
				Media:              outMedia,
				AppliedMaxPerOwner: applied,
				CombinedCount:      combined,
			}
		}

		applied++
	}
}
