// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/muselet/muselet/internal/feed"
	"github.com/muselet/muselet/internal/models"
)

// Continuation fields for the two merged streams of the following
// feed.
const (
	followAlbumField = "albumKey"
	followMediaField = "mediaKey"
)

// Follow records that userID follows creatorID. Idempotent.
func (s *BadgerStore) Follow(ctx context.Context, userID, creatorID string) error {
	if userID == "" || creatorID == "" {
		return fmt.Errorf("user and creator ids are required")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(followKey(userID, creatorID), nil)
	})
}

// Unfollow removes a follow edge. Removing an absent edge is not an
// error.
func (s *BadgerStore) Unfollow(ctx context.Context, userID, creatorID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(followKey(userID, creatorID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// ListFollowing returns the creator IDs the user follows.
func (s *BadgerStore) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	var creators []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(followPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			creators = append(creators, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return creators, nil
}

// GenerateFollowingFeed merges the newest public albums and media from
// the user's followed creators into one reverse-chronological page.
// The continuation key carries a resume position per stream.
func (s *BadgerStore) GenerateFollowingFeed(ctx context.Context, userID string, limit int, cursor models.ContinuationKey) (feed.FollowingPage, error) {
	creators, err := s.ListFollowing(ctx, userID)
	if err != nil {
		return feed.FollowingPage{}, err
	}
	if len(creators) == 0 || limit <= 0 {
		return feed.FollowingPage{}, nil
	}

	followed := make(map[string]bool, len(creators))
	for _, c := range creators {
		followed[c] = true
	}

	albums, albumLEK, err := s.followedAlbums(ctx, followed, limit, subCursor(cursor, followAlbumField))
	if err != nil {
		return feed.FollowingPage{}, err
	}
	media, mediaLEK, err := s.followedMedia(ctx, followed, limit, subCursor(cursor, followMediaField))
	if err != nil {
		return feed.FollowingPage{}, err
	}

	items := make([]models.FeedItem, 0, len(albums)+len(media))
	items = append(items, albums...)
	items = append(items, media...)
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].CreatedAt(), items[j].CreatedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return items[i].ID() < items[j].ID()
	})

	// Truncating the merged page can leave fetched items unconsumed.
	// Index keys are derivable from an item, so each stream resumes
	// exactly after its last item that made the page rather than after
	// the last item fetched.
	albumsUsed, mediaUsed := 0, 0
	if len(items) > limit {
		items = items[:limit]
	}
	for _, it := range items {
		if it.IsAlbum() {
			albumsUsed++
		} else {
			mediaUsed++
		}
	}

	albumResume := streamResume(albums, albumsUsed, albumLEK, subCursor(cursor, followAlbumField), albumFeedIndexKey)
	mediaResume := streamResume(media, mediaUsed, mediaLEK, subCursor(cursor, followMediaField), mediaFeedIndexKey)

	lek := mergeFollowCursor(albumResume, mediaResume)
	return feed.FollowingPage{Items: items, LastEvaluatedKey: lek}, nil
}

// streamResume picks the continuation position for one stream after a
// merged page consumed `used` of its fetched items. A fully consumed
// stream resumes from its scan position; a partially consumed one
// resumes from its last item on the page; an untouched one keeps the
// incoming position.
func streamResume(fetched []models.FeedItem, used int, scanLEK, incoming models.ContinuationKey, indexKey func(models.FeedItem) string) models.ContinuationKey {
	switch {
	case used >= len(fetched):
		return scanLEK
	case used > 0:
		return models.ContinuationKey{cursorKeyField: indexKey(fetched[used-1])}
	default:
		return incoming
	}
}

func albumFeedIndexKey(it models.FeedItem) string {
	return albumCreatedPrefix + revNanos(it.CreatedAt()) + ":" + it.ID()
}

func mediaFeedIndexKey(it models.FeedItem) string {
	return mediaCreatedPrefix + revNanos(it.CreatedAt()) + ":" + it.ID()
}

// followedAlbums scans the album created index for public albums owned
// by followed creators.
func (s *BadgerStore) followedAlbums(ctx context.Context, followed map[string]bool, limit int, cursor models.ContinuationKey) ([]models.FeedItem, models.ContinuationKey, error) {
	var items []models.FeedItem
	lek, err := s.scanPage(ctx, albumCreatedPrefix, limit, cursor, func(txn *badger.Txn, id string) (bool, error) {
		var a models.Album
		ok, err := loadItem(txn, albumItemKey(id), &a)
		if err != nil || !ok || !a.IsPublic || !followed[a.OwnerID] {
			return false, err
		}
		items = append(items, models.AlbumItem(a))
		return true, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan followed albums: %w", err)
	}
	return items, lek, nil
}

// followedMedia scans the media created index for public media owned
// by followed creators.
func (s *BadgerStore) followedMedia(ctx context.Context, followed map[string]bool, limit int, cursor models.ContinuationKey) ([]models.FeedItem, models.ContinuationKey, error) {
	var items []models.FeedItem
	lek, err := s.scanPage(ctx, mediaCreatedPrefix, limit, cursor, func(txn *badger.Txn, id string) (bool, error) {
		var m models.Media
		ok, err := loadItem(txn, mediaItemKey(id), &m)
		if err != nil || !ok || !m.IsPublic || !followed[m.OwnerID] {
			return false, err
		}
		items = append(items, models.MediaItem(m))
		return true, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan followed media: %w", err)
	}
	return items, lek, nil
}

// subCursor extracts one stream's resume position from the merged
// following cursor.
func subCursor(cursor models.ContinuationKey, field string) models.ContinuationKey {
	if cursor == nil {
		return nil
	}
	if v, ok := cursor[field].(string); ok && v != "" {
		return models.ContinuationKey{cursorKeyField: v}
	}
	return nil
}

// mergeFollowCursor combines the per-stream continuation keys; nil when
// both streams are exhausted.
func mergeFollowCursor(albumLEK, mediaLEK models.ContinuationKey) models.ContinuationKey {
	out := models.ContinuationKey{}
	if v := lastScannedKey(albumLEK); v != "" {
		out[followAlbumField] = v
	}
	if v := lastScannedKey(mediaLEK); v != "" {
		out[followMediaField] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
