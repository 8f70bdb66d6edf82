// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

// Package cache provides the in-process preview cache backing feed
// assembly. Album previews are read on every page that shows the
// album, so a short-TTL LRU in front of the store removes the most
// repetitive lookups.
package cache

import (
	"sync"
	"time"

	"github.com/muselet/muselet/internal/metrics"
	"github.com/muselet/muselet/internal/models"
)

// previewEntry is a node of the LRU list.
type previewEntry struct {
	key       string
	value     []models.Media
	prev      *previewEntry
	next      *previewEntry
	expiresAt time.Time
}

// PreviewCache is a thread-safe LRU cache of album previews with TTL
// support. Get, Add, and eviction are all O(1): a doubly-linked list
// keeps recency order and a map provides lookups. Expired entries are
// dropped lazily on access.
type PreviewCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	items    map[string]*previewEntry

	// head.next is the most recently used, tail.prev the least.
	head *previewEntry
	tail *previewEntry
}

// NewPreviewCache creates a preview cache with the given capacity and
// entry TTL. Non-positive values fall back to defaults.
func NewPreviewCache(capacity int, ttl time.Duration) *PreviewCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &PreviewCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*previewEntry, capacity),
		head:     &previewEntry{},
		tail:     &previewEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a cached preview, moving it to the front on a hit.
func (c *PreviewCache) Get(albumID string) ([]models.Media, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[albumID]
	if !exists {
		metrics.RecordPreviewCache(false)
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeEntry(entry)
		metrics.RecordPreviewCache(false)
		return nil, false
	}

	c.moveToFront(entry)
	metrics.RecordPreviewCache(true)
	return entry.value, true
}

// Add stores or refreshes a preview. The least recently used entry is
// evicted at capacity.
func (c *PreviewCache) Add(albumID string, preview []models.Media) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)
	if entry, exists := c.items[albumID]; exists {
		entry.value = preview
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &previewEntry{key: albumID, value: preview, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[albumID] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
	metrics.PreviewCacheEntries.Set(float64(len(c.items)))
}

// Invalidate drops one album's preview, for use when the album's
// content changes.
func (c *PreviewCache) Invalidate(albumID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[albumID]
	if !exists {
		return false
	}
	c.removeEntry(entry)
	return true
}

// Len returns the current number of entries.
func (c *PreviewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Internal methods, called with the lock held.

func (c *PreviewCache) addToFront(entry *previewEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *PreviewCache) moveToFront(entry *previewEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *PreviewCache) removeEntry(entry *previewEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *PreviewCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
