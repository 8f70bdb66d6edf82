// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/muselet/muselet/internal/models"
)

// Seeded catalog shape. Counts are tuned so one seeded database
// exercises every feed mode: multiple pages, several creators per tag,
// and a mix of fresh and aged content for window fallback.
const (
	seedCreators      = 12
	seedAlbums        = 40
	seedMediaPerAlbum = 4
	seedLooseMedia    = 80
)

var seedTags = []string{"travel", "food", "street", "nature", "portrait", "architecture"}

// SeedMockData populates the store with a deterministic demo catalog.
// Safe to call repeatedly: IDs are derived from a fixed-seed RNG, so a
// second run overwrites the same records.
func (s *BadgerStore) SeedMockData(ctx context.Context) error {
	rng := rand.New(rand.NewSource(42))
	now := time.Now()

	creators := make([]string, seedCreators)
	for i := range creators {
		creators[i] = seedID(rng, "user")
	}

	seededMedia := 0
	for i := 0; i < seedAlbums; i++ {
		owner := creators[i%len(creators)]
		albumID := seedID(rng, "album")
		created := now.Add(-time.Duration(rng.Intn(90*24)) * time.Hour)
		tag := seedTags[i%len(seedTags)]

		mediaIDs := make([]string, 0, seedMediaPerAlbum)
		for j := 0; j < seedMediaPerAlbum; j++ {
			m := randomMedia(rng, owner, created, tag)
			if err := s.PutMedia(ctx, m); err != nil {
				return fmt.Errorf("seed album media: %w", err)
			}
			mediaIDs = append(mediaIDs, m.ID)
			seededMedia++
		}

		a := models.Album{
			ID:           albumID,
			OwnerID:      owner,
			Title:        fmt.Sprintf("Album %d", i+1),
			Tags:         []string{tag},
			IsPublic:     i%7 != 0,
			CreatedAt:    created,
			Popularity:   int64(rng.Intn(5000)),
			MediaIDs:     mediaIDs,
			CoverMediaID: mediaIDs[0],
		}
		if err := s.PutAlbum(ctx, a); err != nil {
			return fmt.Errorf("seed album: %w", err)
		}
	}

	for i := 0; i < seedLooseMedia; i++ {
		owner := creators[rng.Intn(len(creators))]
		created := now.Add(-time.Duration(rng.Intn(60*24)) * time.Hour)
		tag := seedTags[rng.Intn(len(seedTags))]
		m := randomMedia(rng, owner, created, tag)
		if err := s.PutMedia(ctx, m); err != nil {
			return fmt.Errorf("seed media: %w", err)
		}
		seededMedia++
	}

	// A few follow edges so the following feed has content out of the
	// box for the first seeded user.
	for _, creator := range creators[1:5] {
		if err := s.Follow(ctx, creators[0], creator); err != nil {
			return fmt.Errorf("seed follow: %w", err)
		}
	}

	s.logger.Info().
		Int("creators", seedCreators).
		Int("albums", seedAlbums).
		Int("media", seededMedia).
		Msg("mock catalog seeded")
	return nil
}

func randomMedia(rng *rand.Rand, owner string, albumTime time.Time, tag string) models.Media {
	kind := models.KindImage
	if rng.Intn(5) == 0 {
		kind = models.KindVideo
	}
	id := seedID(rng, "media")
	return models.Media{
		ID:           id,
		OwnerID:      owner,
		Kind:         kind,
		Tags:         []string{tag},
		IsPublic:     rng.Intn(10) != 0,
		CreatedAt:    albumTime.Add(time.Duration(rng.Intn(3600)) * time.Second),
		Popularity:   int64(rng.Intn(2000)),
		URL:          fmt.Sprintf("https://cdn.muselet.example/%s", id),
		ThumbnailURL: fmt.Sprintf("https://cdn.muselet.example/%s/thumb", id),
	}
}

// seedID derives a stable UUID from the seeded RNG so repeated seeding
// produces the same identifiers.
func seedID(rng *rand.Rand, prefix string) string {
	var b [16]byte
	rng.Read(b[:])
	u, err := uuid.FromBytes(b[:])
	if err != nil {
		u = uuid.New()
	}
	return prefix + "-" + u.String()
}
