// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

// Package models defines the shared content types exchanged between the
// store, the feed engine, and the HTTP layer.
package models

import "time"

// ItemKind identifies the concrete type of a feed item.
type ItemKind string

const (
	// KindAlbum is a curated collection of media items.
	KindAlbum ItemKind = "album"
	// KindImage is a single image.
	KindImage ItemKind = "image"
	// KindVideo is a single video.
	KindVideo ItemKind = "video"
)

// Album is a creator-owned collection of media items.
type Album struct {
	// ID is the unique album identifier.
	ID string `json:"id"`

	// OwnerID is the creator's user identifier.
	OwnerID string `json:"ownerId"`

	// Title is the display title.
	Title string `json:"title,omitempty"`

	// Tags is the set of tags attached to the album.
	Tags []string `json:"tags,omitempty"`

	// IsPublic indicates whether the album is publicly visible.
	IsPublic bool `json:"isPublic"`

	// CreatedAt is when the album was created.
	CreatedAt time.Time `json:"createdAt"`

	// Popularity is the raw popularity counter (likes + views weighted
	// upstream). Monotonically non-decreasing in the store.
	Popularity int64 `json:"popularity"`

	// MediaIDs lists the media items contained in the album, in
	// display order.
	MediaIDs []string `json:"mediaIds,omitempty"`

	// CoverMediaID is the media item used as the album cover.
	CoverMediaID string `json:"coverMediaId,omitempty"`

	// Preview holds a few media items for thumbnail rendering.
	// Populated by the feed engine, never persisted.
	Preview []Media `json:"preview,omitempty"`
}

// Media is a single image or video item.
type Media struct {
	// ID is the unique media identifier.
	ID string `json:"id"`

	// OwnerID is the creator's user identifier.
	OwnerID string `json:"ownerId"`

	// Kind is KindImage or KindVideo.
	Kind ItemKind `json:"kind"`

	// Title is the display title.
	Title string `json:"title,omitempty"`

	// Tags is the set of tags attached to the media item.
	Tags []string `json:"tags,omitempty"`

	// IsPublic indicates whether the item is publicly visible.
	IsPublic bool `json:"isPublic"`

	// CreatedAt is when the item was uploaded.
	CreatedAt time.Time `json:"createdAt"`

	// Popularity is the raw popularity counter.
	Popularity int64 `json:"popularity"`

	// URL is the rendered asset location.
	URL string `json:"url,omitempty"`

	// ThumbnailURL is the preview asset location.
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// FeedItem is the tagged union returned in feed pages: exactly one of
// Album or Media is set, and Kind discriminates.
type FeedItem struct {
	// Kind is KindAlbum for albums, KindImage or KindVideo for media.
	Kind ItemKind `json:"kind"`

	// Album is set when Kind is KindAlbum.
	Album *Album `json:"album,omitempty"`

	// Media is set when Kind is KindImage or KindVideo.
	Media *Media `json:"media,omitempty"`
}

// AlbumItem wraps an album as a feed item.
func AlbumItem(a Album) FeedItem {
	return FeedItem{Kind: KindAlbum, Album: &a}
}

// MediaItem wraps a media item as a feed item.
func MediaItem(m Media) FeedItem {
	return FeedItem{Kind: m.Kind, Media: &m}
}

// IsAlbum reports whether the item is an album.
func (f FeedItem) IsAlbum() bool {
	return f.Kind == KindAlbum
}

// ID returns the identifier of the wrapped item.
func (f FeedItem) ID() string {
	if f.Album != nil {
		return f.Album.ID
	}
	if f.Media != nil {
		return f.Media.ID
	}
	return ""
}

// OwnerID returns the creator identifier of the wrapped item.
func (f FeedItem) OwnerID() string {
	if f.Album != nil {
		return f.Album.OwnerID
	}
	if f.Media != nil {
		return f.Media.OwnerID
	}
	return ""
}

// CreatedAt returns the creation timestamp of the wrapped item.
func (f FeedItem) CreatedAt() time.Time {
	if f.Album != nil {
		return f.Album.CreatedAt
	}
	if f.Media != nil {
		return f.Media.CreatedAt
	}
	return time.Time{}
}

// Popularity returns the raw popularity counter of the wrapped item.
func (f FeedItem) Popularity() int64 {
	if f.Album != nil {
		return f.Album.Popularity
	}
	if f.Media != nil {
		return f.Media.Popularity
	}
	return 0
}

// HasTag reports whether the wrapped item carries the given tag.
func (f FeedItem) HasTag(tag string) bool {
	var tags []string
	switch {
	case f.Album != nil:
		tags = f.Album.Tags
	case f.Media != nil:
		tags = f.Media.Tags
	}
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ContinuationKey is the store-native pagination position. It is
// treated as opaque by the feed engine and round-tripped through
// cursors verbatim.
type ContinuationKey map[string]any

// AlbumPage is one page of an album index scan.
type AlbumPage struct {
	Albums []Album

	// LastEvaluatedKey is nil when the scan is exhausted.
	LastEvaluatedKey ContinuationKey
}

// MediaPage is one page of a media index scan.
type MediaPage struct {
	Media []Media

	// LastEvaluatedKey is nil when the scan is exhausted.
	LastEvaluatedKey ContinuationKey
}
