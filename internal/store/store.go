// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

// Package store persists albums, media, and follow edges in BadgerDB
// and serves the index scans the feed engine paginates over.
//
// Layout is a single keyspace with typed prefixes:
//
//	item:album:<id>                      album record (JSON)
//	item:media:<id>                      media record (JSON)
//	idx:created:album:<revNanos>:<id>    newest-first album index
//	idx:created:media:<revNanos>:<id>    newest-first media index
//	idx:pop:album:<revPop>:<id>          most-popular-first album index
//	idx:pop:media:<revPop>:<id>          most-popular-first media index
//	idx:tag:album:<tag>:<revNanos>:<id>  per-tag newest-first album index
//	follow:<userID>:<creatorID>          follow edge
//
// Index values hold the item ID. Reverse-encoded sort fields make the
// natural ascending key order serve descending scans, so pagination is
// a plain Seek past the last returned index key.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/muselet/muselet/internal/models"
)

const (
	albumItemPrefix    = "item:album:"
	mediaItemPrefix    = "item:media:"
	albumCreatedPrefix = "idx:created:album:"
	mediaCreatedPrefix = "idx:created:media:"
	albumPopPrefix     = "idx:pop:album:"
	mediaPopPrefix     = "idx:pop:media:"
	albumTagPrefix     = "idx:tag:album:"
	followPrefix       = "follow:"
)

// previewSize is how many media items an album preview carries.
const previewSize = 4

// cursorKeyField is the continuation key field holding the last index
// key a scan returned.
const cursorKeyField = "key"

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("item not found")

// BadgerStore is the BadgerDB-backed content store. It is safe for
// concurrent use; Badger provides snapshot isolation per transaction.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore wraps an open Badger handle.
func NewBadgerStore(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// revNanos encodes a timestamp so ascending key order is newest-first.
func revNanos(t time.Time) string {
	return fmt.Sprintf("%020d", math.MaxInt64-t.UnixNano())
}

// revPop encodes a popularity counter so ascending key order is
// most-popular-first.
func revPop(p int64) string {
	return fmt.Sprintf("%020d", math.MaxInt64-p)
}

func albumItemKey(id string) []byte { return []byte(albumItemPrefix + id) }
func mediaItemKey(id string) []byte { return []byte(mediaItemPrefix + id) }

func followKey(user, creator string) []byte {
	return []byte(followPrefix + user + ":" + creator)
}

func albumIndexKeys(a models.Album) [][]byte {
	keys := [][]byte{
		[]byte(albumCreatedPrefix + revNanos(a.CreatedAt) + ":" + a.ID),
		[]byte(albumPopPrefix + revPop(a.Popularity) + ":" + a.ID),
	}
	for _, tag := range a.Tags {
		keys = append(keys, []byte(albumTagPrefix+tag+":"+revNanos(a.CreatedAt)+":"+a.ID))
	}
	return keys
}

func mediaIndexKeys(m models.Media) [][]byte {
	return [][]byte{
		[]byte(mediaCreatedPrefix + revNanos(m.CreatedAt) + ":" + m.ID),
		[]byte(mediaPopPrefix + revPop(m.Popularity) + ":" + m.ID),
	}
}

// PutAlbum upserts an album and its index entries. Stale index entries
// from a previous version (changed popularity or tags) are removed in
// the same transaction.
func (s *BadgerStore) PutAlbum(ctx context.Context, a models.Album) error {
	if a.ID == "" {
		return fmt.Errorf("album id is required")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal album: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var prev models.Album
		if ok, err := loadItem(txn, albumItemKey(a.ID), &prev); err != nil {
			return err
		} else if ok {
			for _, key := range albumIndexKeys(prev) {
				if err := txn.Delete(key); err != nil {
					return fmt.Errorf("drop stale index: %w", err)
				}
			}
		}

		if err := txn.Set(albumItemKey(a.ID), data); err != nil {
			return fmt.Errorf("set album: %w", err)
		}
		for _, key := range albumIndexKeys(a) {
			if err := txn.Set(key, []byte(a.ID)); err != nil {
				return fmt.Errorf("set index: %w", err)
			}
		}
		return nil
	})
}

// PutMedia upserts a media item and its index entries.
func (s *BadgerStore) PutMedia(ctx context.Context, m models.Media) error {
	if m.ID == "" {
		return fmt.Errorf("media id is required")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var prev models.Media
		if ok, err := loadItem(txn, mediaItemKey(m.ID), &prev); err != nil {
			return err
		} else if ok {
			for _, key := range mediaIndexKeys(prev) {
				if err := txn.Delete(key); err != nil {
					return fmt.Errorf("drop stale index: %w", err)
				}
			}
		}

		if err := txn.Set(mediaItemKey(m.ID), data); err != nil {
			return fmt.Errorf("set media: %w", err)
		}
		for _, key := range mediaIndexKeys(m) {
			if err := txn.Set(key, []byte(m.ID)); err != nil {
				return fmt.Errorf("set index: %w", err)
			}
		}
		return nil
	})
}

// GetAlbum fetches one album by ID.
func (s *BadgerStore) GetAlbum(ctx context.Context, id string) (models.Album, error) {
	var a models.Album
	err := s.db.View(func(txn *badger.Txn) error {
		ok, err := loadItem(txn, albumItemKey(id), &a)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	return a, err
}

// GetMedia fetches one media item by ID.
func (s *BadgerStore) GetMedia(ctx context.Context, id string) (models.Media, error) {
	var m models.Media
	err := s.db.View(func(txn *badger.Txn) error {
		ok, err := loadItem(txn, mediaItemKey(id), &m)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	return m, err
}

// DeleteAlbum removes an album and all its index entries.
func (s *BadgerStore) DeleteAlbum(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var a models.Album
		ok, err := loadItem(txn, albumItemKey(id), &a)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		for _, key := range albumIndexKeys(a) {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete index: %w", err)
			}
		}
		return txn.Delete(albumItemKey(id))
	})
}

// DeleteMedia removes a media item and all its index entries.
func (s *BadgerStore) DeleteMedia(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var m models.Media
		ok, err := loadItem(txn, mediaItemKey(id), &m)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		for _, key := range mediaIndexKeys(m) {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete index: %w", err)
			}
		}
		return txn.Delete(mediaItemKey(id))
	})
}

// loadItem reads and unmarshals one record, reporting whether it
// exists.
func loadItem(txn *badger.Txn, key []byte, dst any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	}); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// lastScannedKey extracts the resume position from a continuation key.
func lastScannedKey(cursor models.ContinuationKey) string {
	if cursor == nil {
		return ""
	}
	if v, ok := cursor[cursorKeyField].(string); ok {
		return v
	}
	return ""
}

// scanPage walks one index prefix from the cursor position, calling
// accept for each referenced item ID until limit accepted items. The
// returned continuation key is nil when the index is exhausted.
func (s *BadgerStore) scanPage(ctx context.Context, prefix string, limit int, cursor models.ContinuationKey, accept func(txn *badger.Txn, id string) (bool, error)) (models.ContinuationKey, error) {
	if limit <= 0 {
		return nil, nil
	}

	var lek models.ContinuationKey
	err := s.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		pfx := []byte(prefix)
		resume := lastScannedKey(cursor)

		if resume != "" {
			it.Seek([]byte(resume))
			if it.ValidForPrefix(pfx) && string(it.Item().Key()) == resume {
				it.Next()
			}
		} else {
			it.Seek(pfx)
		}

		accepted := 0
		var lastKey string
		for ; it.ValidForPrefix(pfx); it.Next() {
			item := it.Item()
			lastKey = string(item.Key())

			var id string
			if err := item.Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return fmt.Errorf("read index value: %w", err)
			}

			ok, err := accept(txn, id)
			if err != nil {
				return err
			}
			if ok {
				accepted++
			}
			if accepted >= limit {
				it.Next()
				break
			}
		}

		if it.ValidForPrefix(pfx) && lastKey != "" {
			lek = models.ContinuationKey{cursorKeyField: lastKey}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lek, nil
}

// QueryPublicAlbums returns public albums newest-first.
func (s *BadgerStore) QueryPublicAlbums(ctx context.Context, limit int, cursor models.ContinuationKey) (models.AlbumPage, error) {
	var page models.AlbumPage
	lek, err := s.scanPage(ctx, albumCreatedPrefix, limit, cursor, func(txn *badger.Txn, id string) (bool, error) {
		var a models.Album
		ok, err := loadItem(txn, albumItemKey(id), &a)
		if err != nil || !ok || !a.IsPublic {
			return false, err
		}
		page.Albums = append(page.Albums, a)
		return true, nil
	})
	if err != nil {
		return models.AlbumPage{}, fmt.Errorf("scan public albums: %w", err)
	}
	page.LastEvaluatedKey = lek
	return page, nil
}

// QueryPublicMedia returns public media newest-first.
func (s *BadgerStore) QueryPublicMedia(ctx context.Context, limit int, cursor models.ContinuationKey) (models.MediaPage, error) {
	var page models.MediaPage
	lek, err := s.scanPage(ctx, mediaCreatedPrefix, limit, cursor, func(txn *badger.Txn, id string) (bool, error) {
		var m models.Media
		ok, err := loadItem(txn, mediaItemKey(id), &m)
		if err != nil || !ok || !m.IsPublic {
			return false, err
		}
		page.Media = append(page.Media, m)
		return true, nil
	})
	if err != nil {
		return models.MediaPage{}, fmt.Errorf("scan public media: %w", err)
	}
	page.LastEvaluatedKey = lek
	return page, nil
}

// QueryPopularAlbums returns public albums most-popular-first,
// optionally restricted to a tag. The tag filter runs against the
// loaded record, so sparse tags pay a scan cost proportional to the
// popularity index, not the tag index.
func (s *BadgerStore) QueryPopularAlbums(ctx context.Context, limit int, cursor models.ContinuationKey, tag string) (models.AlbumPage, error) {
	var page models.AlbumPage
	lek, err := s.scanPage(ctx, albumPopPrefix, limit, cursor, func(txn *badger.Txn, id string) (bool, error) {
		var a models.Album
		ok, err := loadItem(txn, albumItemKey(id), &a)
		if err != nil || !ok || !a.IsPublic {
			return false, err
		}
		if tag != "" && !hasTag(a.Tags, tag) {
			return false, nil
		}
		page.Albums = append(page.Albums, a)
		return true, nil
	})
	if err != nil {
		return models.AlbumPage{}, fmt.Errorf("scan popular albums: %w", err)
	}
	page.LastEvaluatedKey = lek
	return page, nil
}

// QueryPopularMedia returns public media most-popular-first, optionally
// restricted to a tag.
func (s *BadgerStore) QueryPopularMedia(ctx context.Context, limit int, cursor models.ContinuationKey, tag string) (models.MediaPage, error) {
	var page models.MediaPage
	lek, err := s.scanPage(ctx, mediaPopPrefix, limit, cursor, func(txn *badger.Txn, id string) (bool, error) {
		var m models.Media
		ok, err := loadItem(txn, mediaItemKey(id), &m)
		if err != nil || !ok || !m.IsPublic {
			return false, err
		}
		if tag != "" && !hasTag(m.Tags, tag) {
			return false, nil
		}
		page.Media = append(page.Media, m)
		return true, nil
	})
	if err != nil {
		return models.MediaPage{}, fmt.Errorf("scan popular media: %w", err)
	}
	page.LastEvaluatedKey = lek
	return page, nil
}

// ListAlbumsByTag returns albums carrying the tag newest-first.
func (s *BadgerStore) ListAlbumsByTag(ctx context.Context, tag string, limit int, cursor models.ContinuationKey, publicOnly bool) (models.AlbumPage, error) {
	if tag == "" {
		return models.AlbumPage{}, fmt.Errorf("tag is required")
	}

	var page models.AlbumPage
	prefix := albumTagPrefix + tag + ":"
	lek, err := s.scanPage(ctx, prefix, limit, cursor, func(txn *badger.Txn, id string) (bool, error) {
		var a models.Album
		ok, err := loadItem(txn, albumItemKey(id), &a)
		if err != nil || !ok {
			return false, err
		}
		if publicOnly && !a.IsPublic {
			return false, nil
		}
		page.Albums = append(page.Albums, a)
		return true, nil
	})
	if err != nil {
		return models.AlbumPage{}, fmt.Errorf("scan albums by tag: %w", err)
	}
	page.LastEvaluatedKey = lek
	return page, nil
}

// GetContentPreviewForAlbum returns the album's first few media items
// for thumbnail rendering. Missing media IDs are skipped, so a preview
// survives partial deletions.
func (s *BadgerStore) GetContentPreviewForAlbum(ctx context.Context, albumID string) ([]models.Media, error) {
	var preview []models.Media
	err := s.db.View(func(txn *badger.Txn) error {
		var a models.Album
		ok, err := loadItem(txn, albumItemKey(albumID), &a)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		for _, id := range a.MediaIDs {
			if len(preview) >= previewSize {
				break
			}
			var m models.Media
			ok, err := loadItem(txn, mediaItemKey(id), &m)
			if err != nil {
				return err
			}
			if ok {
				preview = append(preview, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preview for album %s: %w", albumID, err)
	}
	return preview, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
