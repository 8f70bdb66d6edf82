// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/muselet/muselet/internal/models"
)

// fakeStore serves fixed album and media slices with offset-based
// continuation keys, mimicking the real store's page protocol. The
// engine issues queries concurrently, so counters are mutex-guarded.
type fakeStore struct {
	albums []models.Album
	media  []models.Media

	mu               sync.Mutex
	albumQueries     int
	mediaQueries     int
	previewQueries   int
	tagQueries       int
	popularQueries   int
	failPreviews     bool
	recordedTagOnly  string
	recordedPublicly bool
}

func (s *fakeStore) count(counter *int) {
	s.mu.Lock()
	*counter++
	s.mu.Unlock()
}

func offsetOf(cursor models.ContinuationKey) int {
	if cursor == nil {
		return 0
	}
	// JSON decoding turns numbers into float64; accept both.
	switch v := cursor["offset"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func pageKeys[T any](items []T, offset, limit int) ([]T, models.ContinuationKey) {
	if offset >= len(items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page := items[offset:end]
	if end >= len(items) {
		return page, nil
	}
	return page, models.ContinuationKey{"offset": end}
}

func (s *fakeStore) QueryPublicAlbums(_ context.Context, limit int, cursor models.ContinuationKey) (models.AlbumPage, error) {
	s.count(&s.albumQueries)
	page, lek := pageKeys(s.albums, offsetOf(cursor), limit)
	return models.AlbumPage{Albums: page, LastEvaluatedKey: lek}, nil
}

func (s *fakeStore) QueryPublicMedia(_ context.Context, limit int, cursor models.ContinuationKey) (models.MediaPage, error) {
	s.count(&s.mediaQueries)
	page, lek := pageKeys(s.media, offsetOf(cursor), limit)
	return models.MediaPage{Media: page, LastEvaluatedKey: lek}, nil
}

func (s *fakeStore) QueryPopularAlbums(_ context.Context, limit int, cursor models.ContinuationKey, tag string) (models.AlbumPage, error) {
	s.count(&s.popularQueries)
	page, lek := pageKeys(s.albums, offsetOf(cursor), limit)
	return models.AlbumPage{Albums: page, LastEvaluatedKey: lek}, nil
}

func (s *fakeStore) QueryPopularMedia(_ context.Context, limit int, cursor models.ContinuationKey, tag string) (models.MediaPage, error) {
	s.count(&s.popularQueries)
	page, lek := pageKeys(s.media, offsetOf(cursor), limit)
	return models.MediaPage{Media: page, LastEvaluatedKey: lek}, nil
}

func (s *fakeStore) ListAlbumsByTag(_ context.Context, tag string, limit int, cursor models.ContinuationKey, publicOnly bool) (models.AlbumPage, error) {
	s.count(&s.tagQueries)
	s.recordedTagOnly = tag
	s.recordedPublicly = publicOnly

	var matched []models.Album
	for _, a := range s.albums {
		for _, t := range a.Tags {
			if t == tag {
				matched = append(matched, a)
				break
			}
		}
	}
	page, lek := pageKeys(matched, offsetOf(cursor), limit)
	return models.AlbumPage{Albums: page, LastEvaluatedKey: lek}, nil
}

func (s *fakeStore) GetContentPreviewForAlbum(_ context.Context, albumID string) ([]models.Media, error) {
	s.count(&s.previewQueries)
	if s.failPreviews {
		return nil, errors.New("preview lookup failed")
	}
	return []models.Media{{ID: albumID + "-preview", Kind: models.KindImage}}, nil
}

func newTestEngine(t *testing.T, st Store) *Engine {
	t.Helper()
	eng, err := NewEngine(DefaultConfig(), st, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	eng.SetClock(testNow)
	eng.SetSeedSource(func() float64 { return 0.5 })
	return eng
}

func freshAlbum(id, owner string, ageDays float64, popularity int64, tags ...string) models.Album {
	return models.Album{
		ID:         id,
		OwnerID:    owner,
		Tags:       tags,
		IsPublic:   true,
		CreatedAt:  ageDaysAgo(testNow(), ageDays),
		Popularity: popularity,
		MediaIDs:   []string{id + "-m1"},
	}
}

func freshMedia(id, owner string, ageDays float64, popularity int64) models.Media {
	return models.Media{
		ID:         id,
		OwnerID:    owner,
		Kind:       models.KindImage,
		IsPublic:   true,
		CreatedAt:  ageDaysAgo(testNow(), ageDays),
		Popularity: popularity,
	}
}

// richCatalog fills a store with enough fresh, well-spread content for
// the first fallback attempt to succeed.
func richCatalog() *fakeStore {
	st := &fakeStore{}
	for i := 0; i < 30; i++ {
		st.albums = append(st.albums, freshAlbum(
			fmt.Sprintf("album%02d", i), fmt.Sprintf("creator%02d", i), 0.5, int64(1000-i*10), "travel"))
	}
	for i := 0; i < 60; i++ {
		st.media = append(st.media, freshMedia(
			fmt.Sprintf("media%02d", i), fmt.Sprintf("creator%02d", i%30), 1, int64(500-i)))
	}
	return st
}

func TestDiscoverEmptyCatalog(t *testing.T) {
	st := &fakeStore{}
	eng := newTestEngine(t, st)

	page, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}

	if len(page.Items) != 0 {
		t.Errorf("items = %d, want 0", len(page.Items))
	}
	if page.Cursors.Albums != nil || page.Cursors.Media != nil {
		t.Errorf("cursors = %+v, want both nil", page.Cursors)
	}
	if page.Metadata.TotalItems != 0 {
		t.Errorf("totalItems = %d, want 0", page.Metadata.TotalItems)
	}
	if page.FallbackAttempt() != len(DefaultConfig().Fallbacks)-1 {
		t.Errorf("attempt = %d, want final unbounded stage", page.FallbackAttempt())
	}
}

func TestDiscoverFullPage(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)

	page, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}

	if len(page.Items) != 20 {
		t.Fatalf("items = %d, want 20", len(page.Items))
	}
	if !page.Metadata.DiversificationApplied {
		t.Error("diversificationApplied = false, want true")
	}
	if page.FallbackAttempt() != 0 {
		t.Errorf("attempt = %d, want 0 with a rich catalog", page.FallbackAttempt())
	}

	// Album ratio cap: at most 40% of the page.
	if page.Metadata.AlbumCount > 8 {
		t.Errorf("albumCount = %d, exceeds 40%% of 20", page.Metadata.AlbumCount)
	}
	if page.Metadata.AlbumCount+page.Metadata.MediaCount != page.Metadata.TotalItems {
		t.Error("metadata counts do not sum to totalItems")
	}

	// Albums on the page carry previews.
	for _, it := range page.Items {
		if it.IsAlbum() && len(it.Album.Preview) == 0 {
			t.Errorf("album %s has no preview", it.ID())
		}
	}
}

func TestDiscoverDeterministicForFixedSeed(t *testing.T) {
	a, err := newTestEngine(t, richCatalog()).GetDiscoverFeed(context.Background(), Params{Limit: 20})
	if err != nil {
		t.Fatalf("first feed: %v", err)
	}
	b, err := newTestEngine(t, richCatalog()).GetDiscoverFeed(context.Background(), Params{Limit: 20})
	if err != nil {
		t.Fatalf("second feed: %v", err)
	}

	for i := range a.Items {
		if a.Items[i].ID() != b.Items[i].ID() {
			t.Fatalf("pos %d differs: %s vs %s", i, a.Items[i].ID(), b.Items[i].ID())
		}
	}
}

func TestDiscoverOwnerCapWithRelaxation(t *testing.T) {
	// Everything belongs to one creator: the base cap of 3 cannot fill
	// a page, so relaxation raises it, but never past base + budget.
	st := &fakeStore{}
	for i := 0; i < 40; i++ {
		st.media = append(st.media, freshMedia(fmt.Sprintf("media%02d", i), "dominant", 1, int64(500-i)))
	}
	eng := newTestEngine(t, st)

	page, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}

	cfg := DefaultConfig()
	maxCap := cfg.MaxPerUser + cfg.MaxRelaxation
	if got := page.AppliedMaxPerOwner(); got > maxCap {
		t.Errorf("appliedMaxPerOwner = %d, exceeds %d", got, maxCap)
	}
	if len(page.Items) > maxCap {
		t.Errorf("items = %d from one creator, cap is %d", len(page.Items), maxCap)
	}

	counts := map[string]int{}
	for _, it := range page.Items {
		counts[it.OwnerID()]++
	}
	if counts["dominant"] > maxCap {
		t.Errorf("dominant creator has %d items, cap is %d", counts["dominant"], maxCap)
	}
}

func TestDiscoverCursorRoundTrip(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)

	first, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 10})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if first.Cursors.Media == nil {
		t.Fatal("media cursor is nil with more content available")
	}

	// The returned cursor must carry the pagination depth and decode
	// cleanly back into a continuation key.
	state, ok := DecodeCursor(*first.Cursors.Media)
	if !ok || state == nil {
		t.Fatal("returned cursor does not decode")
	}
	key, depth := SplitDepth(state)
	if depth != 1 {
		t.Errorf("depth = %d, want 1", depth)
	}
	if key == nil {
		t.Error("cursor lost the store continuation key")
	}

	second, err := eng.GetDiscoverFeed(context.Background(), Params{
		Limit:        10,
		CursorAlbums: deref(first.Cursors.Albums),
		CursorMedia:  deref(first.Cursors.Media),
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) == 0 {
		t.Error("second page is empty")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func TestDiscoverMalformedCursorStartsOver(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)

	page, err := eng.GetDiscoverFeed(context.Background(), Params{
		Limit:        20,
		CursorAlbums: "!!!not-a-cursor!!!",
	})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}
	if len(page.Items) != 20 {
		t.Errorf("items = %d, want a full first page", len(page.Items))
	}
	if got := page.DegradedCursors(); got != 1 {
		t.Errorf("DegradedCursors() = %d, want 1", got)
	}
}

func TestDegradedCursorsCounted(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)

	tests := []struct {
		name   string
		params Params
		want   int
	}{
		{"no cursors", Params{Limit: 10}, 0},
		{"both malformed", Params{Limit: 10, CursorAlbums: "%%%", CursorMedia: "%%%"}, 2},
		{"popular mode malformed", Params{Limit: 10, Sort: SortPopular, CursorMedia: "%%%"}, 1},
		{"tag mode malformed", Params{Limit: 10, Tag: "travel", CursorAlbums: "%%%"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := eng.GetDiscoverFeed(context.Background(), tt.params)
			if err != nil {
				t.Fatalf("GetDiscoverFeed: %v", err)
			}
			if got := page.DegradedCursors(); got != tt.want {
				t.Errorf("DegradedCursors() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDiscoverAlbumRecycling(t *testing.T) {
	// The album stream is exhausted (cursor points past the end) while
	// the caller supplies a cursor: the stream restarts from the top.
	st := richCatalog()
	eng := newTestEngine(t, st)

	exhausted := EncodeCursor(WithDepth(models.ContinuationKey{"offset": 1000}, 3))
	page, err := eng.GetDiscoverFeed(context.Background(), Params{
		Limit:        20,
		CursorAlbums: exhausted,
	})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}

	if page.Metadata.AlbumCount == 0 {
		t.Error("no albums on page after recycling")
	}
	if page.Cursors.Albums == nil {
		t.Fatal("recycled album cursor is nil")
	}
	_, depth := SplitDepth(mustDecode(t, *page.Cursors.Albums))
	if depth != 1 {
		t.Errorf("recycled cursor depth = %d, want 1", depth)
	}
}

func mustDecode(t *testing.T, token string) models.ContinuationKey {
	t.Helper()
	state, ok := DecodeCursor(token)
	if !ok {
		t.Fatalf("cursor %q does not decode", token)
	}
	return state
}

func TestDiscoverMediaBackfillOnAlbumScarcity(t *testing.T) {
	// No albums at all and plenty of media: the engine pulls a second
	// media page to compensate.
	st := &fakeStore{}
	for i := 0; i < 120; i++ {
		st.media = append(st.media, freshMedia(
			fmt.Sprintf("media%03d", i), fmt.Sprintf("creator%02d", i%40), 1, int64(1000-i)))
	}
	eng := newTestEngine(t, st)

	page, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}

	if st.mediaQueries < 2 {
		t.Errorf("mediaQueries = %d, want backfill fetch", st.mediaQueries)
	}
	if len(page.Items) != 20 {
		t.Errorf("items = %d, want 20", len(page.Items))
	}
	if page.Metadata.AlbumCount != 0 {
		t.Errorf("albumCount = %d, want 0", page.Metadata.AlbumCount)
	}
}

func TestPopularFeed(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)

	page, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20, Sort: SortPopular})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}

	if len(page.Items) != 20 {
		t.Fatalf("items = %d, want 20", len(page.Items))
	}
	if page.Metadata.DiversificationApplied {
		t.Error("popular mode must not diversify")
	}
	if page.Metadata.TimeWindow != "all time" {
		t.Errorf("timeWindow = %q, want %q", page.Metadata.TimeWindow, "all time")
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].Popularity() > page.Items[i-1].Popularity() {
			t.Fatalf("popularity not descending at pos %d", i)
		}
	}
}

func TestPopularFeedDeterministic(t *testing.T) {
	a, err := newTestEngine(t, richCatalog()).GetDiscoverFeed(context.Background(), Params{Limit: 20, Sort: SortPopular})
	if err != nil {
		t.Fatalf("first feed: %v", err)
	}
	b, err := newTestEngine(t, richCatalog()).GetDiscoverFeed(context.Background(), Params{Limit: 20, Sort: SortPopular})
	if err != nil {
		t.Fatalf("second feed: %v", err)
	}
	for i := range a.Items {
		if a.Items[i].ID() != b.Items[i].ID() {
			t.Fatalf("pos %d differs", i)
		}
	}
}

func TestFollowingFeedRequiresAuth(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)

	_, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20, Sort: SortFollowing})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if st.albumQueries+st.mediaQueries+st.popularQueries != 0 {
		t.Error("store was queried for an unauthorized request")
	}
}

type fakeFollowing struct {
	items  []models.FeedItem
	lek    models.ContinuationKey
	userID string
}

func (f *fakeFollowing) GenerateFollowingFeed(_ context.Context, userID string, limit int, cursor models.ContinuationKey) (FollowingPage, error) {
	f.userID = userID
	items := f.items
	if len(items) > limit {
		items = items[:limit]
	}
	return FollowingPage{Items: items, LastEvaluatedKey: f.lek}, nil
}

func TestFollowingFeedDelegates(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)

	fp := &fakeFollowing{
		items: mediaItems(5),
		lek:   models.ContinuationKey{"offset": 5},
	}
	eng.SetFollowingProvider(fp)

	page, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20, Sort: SortFollowing, UserID: "viewer-1"})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}

	if fp.userID != "viewer-1" {
		t.Errorf("provider saw user %q, want viewer-1", fp.userID)
	}
	if len(page.Items) != 5 {
		t.Errorf("items = %d, want 5", len(page.Items))
	}
	if page.Cursors.Albums == nil {
		t.Error("following cursor missing from albums slot")
	}
}

func TestTagFeed(t *testing.T) {
	st := richCatalog()
	// One tagged album without content must not appear.
	st.albums = append(st.albums, models.Album{
		ID: "empty", OwnerID: "creator00", Tags: []string{"travel"},
		IsPublic: true, CreatedAt: ageDaysAgo(testNow(), 0.1),
	})
	eng := newTestEngine(t, st)

	page, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 50, Tag: "travel"})
	if err != nil {
		t.Fatalf("GetDiscoverFeed: %v", err)
	}

	if !st.recordedPublicly {
		t.Error("tag feed must request public-only albums")
	}
	if st.recordedTagOnly != "travel" {
		t.Errorf("tag = %q, want travel", st.recordedTagOnly)
	}
	for _, it := range page.Items {
		if !it.IsAlbum() {
			t.Fatalf("tag feed returned non-album item %s", it.ID())
		}
		if it.ID() == "empty" {
			t.Error("album with no media included in tag feed")
		}
	}
	if page.Metadata.MediaCount != 0 {
		t.Errorf("mediaCount = %d, want 0", page.Metadata.MediaCount)
	}
}

func TestLimitClamping(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultConfig().DefaultLimit},
		{-5, DefaultConfig().DefaultLimit},
		{500, DefaultConfig().MaxLimit},
		{7, 7},
	}

	for _, tt := range tests {
		page, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: tt.limit, Sort: SortPopular})
		if err != nil {
			t.Fatalf("limit %d: %v", tt.limit, err)
		}
		maxAvail := len(st.albums) + len(st.media)
		want := tt.want
		if want > maxAvail {
			want = maxAvail
		}
		if len(page.Items) > tt.want {
			t.Errorf("limit %d: items = %d, want <= %d", tt.limit, len(page.Items), want)
		}
	}
}

func TestPreviewErrorPropagates(t *testing.T) {
	st := richCatalog()
	st.failPreviews = true
	eng := newTestEngine(t, st)

	_, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20})
	if err == nil {
		t.Fatal("expected preview failure to surface")
	}
}

type countingCache struct {
	mu    sync.Mutex
	store map[string][]models.Media
	hits  int
	adds  int
}

func newCountingCache() *countingCache {
	return &countingCache{store: map[string][]models.Media{}}
}

func (c *countingCache) Get(albumID string) ([]models.Media, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.store[albumID]
	if ok {
		c.hits++
	}
	return p, ok
}

func (c *countingCache) Add(albumID string, preview []models.Media) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adds++
	c.store[albumID] = preview
}

func TestPreviewCacheAvoidsRepeatLookups(t *testing.T) {
	st := richCatalog()
	eng := newTestEngine(t, st)
	cache := newCountingCache()
	eng.SetPreviewCache(cache)

	if _, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20}); err != nil {
		t.Fatalf("first feed: %v", err)
	}
	firstLookups := st.previewQueries
	if cache.adds == 0 {
		t.Fatal("cache never populated")
	}

	if _, err := eng.GetDiscoverFeed(context.Background(), Params{Limit: 20}); err != nil {
		t.Fatalf("second feed: %v", err)
	}
	if st.previewQueries != firstLookups {
		t.Errorf("previewQueries grew from %d to %d, want cache hits", firstLookups, st.previewQueries)
	}
	if cache.hits == 0 {
		t.Error("cache recorded no hits on the second request")
	}
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(DefaultConfig(), nil, zerolog.Nop()); err == nil {
		t.Error("nil store accepted")
	}

	bad := DefaultConfig()
	bad.Fallbacks = []FallbackStage{{MinWindowDays: 7, TargetFraction: 1}}
	if _, err := NewEngine(bad, &fakeStore{}, zerolog.Nop()); err == nil {
		t.Error("config without unbounded final stage accepted")
	}
}
