// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/muselet/muselet/internal/models"
)

// Sort modes accepted by the discover endpoint.
const (
	SortPopular   = "popular"
	SortFollowing = "following"
)

// ErrUnauthorized is returned when the following feed is requested
// without an authenticated caller.
var ErrUnauthorized = errors.New("authentication required for following feed")

// Store is the storage collaborator contract. Implementations are
// expected to be stateless from the engine's point of view; retry and
// backpressure policy belong to the store, not the engine.
type Store interface {
	// QueryPublicAlbums returns public albums in reverse-chronological
	// order, resuming after the given continuation key.
	QueryPublicAlbums(ctx context.Context, limit int, cursor models.ContinuationKey) (models.AlbumPage, error)

	// QueryPublicMedia returns public media in reverse-chronological
	// order, resuming after the given continuation key.
	QueryPublicMedia(ctx context.Context, limit int, cursor models.ContinuationKey) (models.MediaPage, error)

	// QueryPopularAlbums returns public albums in popularity order,
	// optionally filtered by tag.
	QueryPopularAlbums(ctx context.Context, limit int, cursor models.ContinuationKey, tag string) (models.AlbumPage, error)

	// QueryPopularMedia returns public media in popularity order,
	// optionally filtered by tag.
	QueryPopularMedia(ctx context.Context, limit int, cursor models.ContinuationKey, tag string) (models.MediaPage, error)

	// ListAlbumsByTag returns albums carrying the tag, newest first.
	ListAlbumsByTag(ctx context.Context, tag string, limit int, cursor models.ContinuationKey, publicOnly bool) (models.AlbumPage, error)

	// GetContentPreviewForAlbum returns a few media items for album
	// thumbnail rendering, or nil when the album has no content.
	GetContentPreviewForAlbum(ctx context.Context, albumID string) ([]models.Media, error)
}

// FollowingProvider aggregates a feed over the caller's followed
// creators. The engine surfaces its result as-is, without additional
// diversification.
type FollowingProvider interface {
	GenerateFollowingFeed(ctx context.Context, userID string, limit int, cursor models.ContinuationKey) (FollowingPage, error)
}

// FollowingPage is the following-feed collaborator's result.
type FollowingPage struct {
	Items            []models.FeedItem
	LastEvaluatedKey models.ContinuationKey
}

// PreviewCache caches album preview lookups. A nil cache disables
// caching.
type PreviewCache interface {
	Get(albumID string) ([]models.Media, bool)
	Add(albumID string, preview []models.Media)
}

// Params are the per-request feed parameters.
type Params struct {
	// Limit is the requested page size. Zero uses the default; values
	// above the maximum are clamped.
	Limit int

	// Tag restricts the feed to albums carrying the tag.
	Tag string

	// Sort selects popular or following mode; empty means default
	// discovery.
	Sort string

	// MaxPerUser overrides the per-creator diversification cap.
	MaxPerUser int

	// CursorAlbums and CursorMedia are the opaque continuation tokens
	// from the previous page. Single-stream modes (tag, following) use
	// the albums slot.
	CursorAlbums string
	CursorMedia  string

	// UserID identifies the authenticated caller, empty for anonymous
	// requests. Required only by following mode.
	UserID string
}

// Cursors are the next-page continuation tokens; nil means the stream
// is exhausted.
type Cursors struct {
	Albums *string `json:"albums"`
	Media  *string `json:"media"`
}

// Metadata describes the assembled page.
type Metadata struct {
	TotalItems             int    `json:"totalItems"`
	AlbumCount             int    `json:"albumCount"`
	MediaCount             int    `json:"mediaCount"`
	DiversificationApplied bool   `json:"diversificationApplied"`
	TimeWindow             string `json:"timeWindow"`
}

// Page is one assembled feed page.
type Page struct {
	Items    []models.FeedItem `json:"items"`
	Cursors  Cursors           `json:"cursors"`
	Metadata Metadata          `json:"metadata"`

	// Diagnostics for logging and metrics, not serialized.
	attempt            int
	appliedMaxPerOwner int
	degradedCursors    int
}

// FallbackAttempt returns the accepted fallback ladder index
// (0 = the originally requested window).
func (p *Page) FallbackAttempt() int { return p.attempt }

// AppliedMaxPerOwner returns the per-creator cap the page was built
// with, after any relaxation.
func (p *Page) AppliedMaxPerOwner() int { return p.appliedMaxPerOwner }

// DegradedCursors returns how many supplied continuation tokens were
// malformed and degraded to a stream restart while building the page.
func (p *Page) DegradedCursors() int { return p.degradedCursors }

// Engine assembles discovery feed pages. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	cfg       *Config
	store     Store
	following FollowingProvider
	previews  PreviewCache
	logger    zerolog.Logger

	// Injection points for deterministic tests.
	now  func() time.Time
	seed func() float64
}

// NewEngine creates a feed engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, st Store, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	return &Engine{
		cfg:    cfg,
		store:  st,
		logger: logger.With().Str("component", "feed").Logger(),
		now:    time.Now,
		seed: func() float64 {
			return float64(time.Now().UnixNano()%1_000_000_000) / 1_000_000_000
		},
	}, nil
}

// SetFollowingProvider wires the following-feed collaborator.
func (e *Engine) SetFollowingProvider(fp FollowingProvider) {
	e.following = fp
}

// SetPreviewCache wires an album preview cache.
func (e *Engine) SetPreviewCache(pc PreviewCache) {
	e.previews = pc
}

// SetClock overrides the time source. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetSeedSource overrides the per-request seed source. Intended for
// tests.
func (e *Engine) SetSeedSource(seed func() float64) {
	e.seed = seed
}

// GetDiscoverFeed is the public entry point. Modes are checked in
// order: popular, following, tag, then default discovery.
func (e *Engine) GetDiscoverFeed(ctx context.Context, p Params) (*Page, error) {
	p = e.prepareParams(p)

	switch {
	case p.Sort == SortPopular:
		return e.popularFeed(ctx, p)
	case p.Sort == SortFollowing:
		return e.followingFeed(ctx, p)
	case p.Tag != "":
		return e.tagFeed(ctx, p)
	default:
		return e.discoverFeed(ctx, p)
	}
}

// prepareParams applies defaults and clamps.
func (e *Engine) prepareParams(p Params) Params {
	if p.Limit <= 0 {
		p.Limit = e.cfg.DefaultLimit
	}
	if p.Limit > e.cfg.MaxLimit {
		p.Limit = e.cfg.MaxLimit
	}
	if p.MaxPerUser <= 0 {
		p.MaxPerUser = e.cfg.MaxPerUser
	}
	return p
}

// cursorDecoder decodes the cursors of one request, degrading
// malformed tokens to nil with a warning rather than surfacing an
// error to the caller. The degraded count ends up on the page for the
// API layer's metrics.
type cursorDecoder struct {
	engine   *Engine
	degraded int
}

func (e *Engine) cursors() *cursorDecoder {
	return &cursorDecoder{engine: e}
}

func (d *cursorDecoder) decode(token, stream string) models.ContinuationKey {
	state, ok := DecodeCursor(token)
	if !ok {
		d.degraded++
		d.engine.logger.Warn().Str("stream", stream).Msg("malformed cursor, restarting stream")
	}
	return state
}

// popularFeed bypasses time-windowing and diversification: a dual
// popularity-ordered fetch merged by raw popularity. Deterministic by
// design for "trending" semantics.
func (e *Engine) popularFeed(ctx context.Context, p Params) (*Page, error) {
	dec := e.cursors()
	albumKey, _ := SplitDepth(dec.decode(p.CursorAlbums, "albums"))
	mediaKey, _ := SplitDepth(dec.decode(p.CursorMedia, "media"))

	var albumPage models.AlbumPage
	var mediaPage models.MediaPage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		albumPage, err = e.store.QueryPopularAlbums(gctx, p.Limit, albumKey, p.Tag)
		return err
	})
	g.Go(func() error {
		var err error
		mediaPage, err = e.store.QueryPopularMedia(gctx, p.Limit, mediaKey, p.Tag)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch popular candidates: %w", err)
	}

	albums := make([]models.FeedItem, 0, len(albumPage.Albums))
	for _, a := range albumPage.Albums {
		albums = append(albums, models.AlbumItem(a))
	}
	if err := e.attachPreviews(ctx, albums); err != nil {
		return nil, err
	}

	items := albums
	for _, m := range mediaPage.Media {
		items = append(items, models.MediaItem(m))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Popularity() != items[j].Popularity() {
			return items[i].Popularity() > items[j].Popularity()
		}
		return items[i].ID() < items[j].ID()
	})
	if len(items) > p.Limit {
		items = items[:p.Limit]
	}

	page := &Page{
		Items: items,
		Cursors: Cursors{
			Albums: cursorPtr(EncodeCursor(albumPage.LastEvaluatedKey)),
			Media:  cursorPtr(EncodeCursor(mediaPage.LastEvaluatedKey)),
		},
		Metadata:        buildMetadata(items, false, "all time"),
		degradedCursors: dec.degraded,
	}
	return page, nil
}

// followingFeed delegates to the following-feed collaborator and
// returns its cursor as-is in the albums slot.
func (e *Engine) followingFeed(ctx context.Context, p Params) (*Page, error) {
	if p.UserID == "" {
		return nil, ErrUnauthorized
	}
	if e.following == nil {
		return nil, fmt.Errorf("following provider not set")
	}

	dec := e.cursors()
	key, _ := SplitDepth(dec.decode(p.CursorAlbums, "following"))
	fp, err := e.following.GenerateFollowingFeed(ctx, p.UserID, p.Limit, key)
	if err != nil {
		return nil, fmt.Errorf("generate following feed: %w", err)
	}

	page := &Page{
		Items: fp.Items,
		Cursors: Cursors{
			Albums: cursorPtr(EncodeCursor(fp.LastEvaluatedKey)),
		},
		Metadata:        buildMetadata(fp.Items, false, "all time"),
		degradedCursors: dec.degraded,
	}
	return page, nil
}

// tagFeed returns only albums carrying the tag, public-only, filtered
// to albums with at least one media item. No media rows, no
// diversification, single cursor.
func (e *Engine) tagFeed(ctx context.Context, p Params) (*Page, error) {
	dec := e.cursors()
	key, _ := SplitDepth(dec.decode(p.CursorAlbums, "albums"))

	albumPage, err := e.store.ListAlbumsByTag(ctx, p.Tag, p.Limit, key, true)
	if err != nil {
		return nil, fmt.Errorf("list albums by tag: %w", err)
	}

	items := make([]models.FeedItem, 0, len(albumPage.Albums))
	for _, a := range albumPage.Albums {
		if len(a.MediaIDs) == 0 {
			continue
		}
		items = append(items, models.AlbumItem(a))
	}
	if err := e.attachPreviews(ctx, items); err != nil {
		return nil, err
	}

	page := &Page{
		Items: items,
		Cursors: Cursors{
			Albums: cursorPtr(EncodeCursor(albumPage.LastEvaluatedKey)),
		},
		Metadata:        buildMetadata(items, false, "all time"),
		degradedCursors: dec.degraded,
	}
	return page, nil
}

// discoverFeed runs the full default-mode pipeline: oversampled
// fetches, album recycling, media backfill, the fallback planner, the
// dynamic content ratio, interleaving, and cursor re-encoding.
func (e *Engine) discoverFeed(ctx context.Context, p Params) (*Page, error) {
	dec := e.cursors()
	albumKey, albumDepth := SplitDepth(dec.decode(p.CursorAlbums, "albums"))
	mediaKey, mediaDepth := SplitDepth(dec.decode(p.CursorMedia, "media"))

	depth := albumDepth
	if mediaDepth > depth {
		depth = mediaDepth
	}
	window := windowForDepth(depth, e.cfg)

	fetch := p.Limit * e.oversample(p.Limit)

	var albumPage models.AlbumPage
	var mediaPage models.MediaPage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		albumPage, err = e.store.QueryPublicAlbums(gctx, fetch, albumKey)
		return err
	})
	g.Go(func() error {
		var err error
		mediaPage, err = e.store.QueryPublicMedia(gctx, fetch, mediaKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	albums := albumCandidates(albumPage.Albums, false)

	// Album recycling: the forward cursor is exhausted but the caller
	// is deep into pagination, so restart the stream to keep it
	// non-empty rather than serving an album-free feed.
	recycled := false
	var recycledKey models.ContinuationKey
	if len(albums) == 0 && albumKey != nil {
		rp, err := e.store.QueryPublicAlbums(ctx, fetch, nil)
		if err != nil {
			return nil, fmt.Errorf("recycle albums: %w", err)
		}
		albums = albumCandidates(rp.Albums, true)
		recycled = true
		recycledKey = rp.LastEvaluatedKey
		e.logger.Debug().Int("count", len(albums)).Msg("album stream recycled")
	}

	media := mediaCandidates(mediaPage.Media, false)

	// Media backfill: compensate for album scarcity by pulling extra
	// media from the media stream's continuation point.
	backfilled := false
	var backfillKey models.ContinuationKey
	minAlbums := int(math.Ceil(float64(p.Limit) * e.cfg.AlbumScarcityThreshold))
	if len(albums) < minAlbums && mediaPage.LastEvaluatedKey != nil {
		bp, err := e.store.QueryPublicMedia(ctx, p.Limit*2, mediaPage.LastEvaluatedKey)
		if err != nil {
			return nil, fmt.Errorf("backfill media: %w", err)
		}
		media = append(media, mediaCandidates(bp.Media, true)...)
		backfilled = true
		backfillKey = bp.LastEvaluatedKey
		e.logger.Debug().Int("extra", len(bp.Media)).Msg("media backfill fetched")
	}

	now := e.now()
	baseSeed := e.seed()
	plan := runFallback(albums, media, window, p.Limit, p.MaxPerUser, baseSeed, now, e.cfg)

	if plan.Attempt > 0 {
		e.logger.Debug().
			Int("attempt", plan.Attempt).
			Str("window", plan.Window.Label()).
			Msg("time window widened for sparse content")
	}
	if plan.AppliedMaxPerOwner > p.MaxPerUser {
		e.logger.Info().
			Int("base", p.MaxPerUser).
			Int("applied", plan.AppliedMaxPerOwner).
			Msg("diversification cap relaxed")
	}

	// Dynamic content ratio: albums never exceed their configured
	// share of a page, and the share shrinks further when albums are
	// scarce.
	albumRatio := math.Min(e.cfg.MaxAlbumRatio, float64(len(plan.Albums))/float64(p.Limit))
	targetAlbums := int(float64(p.Limit) * albumRatio)
	targetMedia := p.Limit - targetAlbums

	selAlbums := takeItems(plan.Albums, targetAlbums)
	selMedia := takeItems(plan.Media, targetMedia)

	if err := e.attachPreviews(ctx, selAlbums); err != nil {
		return nil, err
	}

	items := interleave(selAlbums, selMedia, p.Limit)
	shuffleRng := NewRand(AttemptSeed(baseSeed, len(e.cfg.Fallbacks), e.cfg.SeedStep))
	softShuffle(items, shuffleRng, e.cfg.ShuffleStrength)

	page := &Page{
		Items:              items,
		Cursors:            e.buildDiscoverCursors(albumPage, mediaPage, recycled, recycledKey, backfilled, backfillKey, depth),
		Metadata:           buildMetadata(items, true, plan.Window.Label()),
		attempt:            plan.Attempt,
		appliedMaxPerOwner: plan.AppliedMaxPerOwner,
		degradedCursors:    dec.degraded,
	}
	return page, nil
}

// oversample returns the candidate fetch multiplier for a limit.
func (e *Engine) oversample(limit int) int {
	if limit > e.cfg.LargeLimitThreshold {
		return e.cfg.OversampleFactorLarge
	}
	return e.cfg.OversampleFactor
}

// buildDiscoverCursors re-encodes the next-page cursors for default
// mode. A recycled album stream restarts its depth at 1; the media
// cursor prefers the backfill continuation when backfill occurred.
func (e *Engine) buildDiscoverCursors(albumPage models.AlbumPage, mediaPage models.MediaPage, recycled bool, recycledKey models.ContinuationKey, backfilled bool, backfillKey models.ContinuationKey, depth int) Cursors {
	nextDepth := depth + 1

	var cursors Cursors
	switch {
	case recycled:
		cursors.Albums = cursorPtr(EncodeCursor(WithDepth(recycledKey, 1)))
	case albumPage.LastEvaluatedKey != nil:
		cursors.Albums = cursorPtr(EncodeCursor(WithDepth(albumPage.LastEvaluatedKey, nextDepth)))
	}

	switch {
	case backfilled && backfillKey != nil:
		cursors.Media = cursorPtr(EncodeCursor(WithDepth(backfillKey, nextDepth)))
	case !backfilled && mediaPage.LastEvaluatedKey != nil:
		cursors.Media = cursorPtr(EncodeCursor(WithDepth(mediaPage.LastEvaluatedKey, nextDepth)))
	}

	return cursors
}

// attachPreviews fills Album.Preview on the given album items with
// parallel lookups, consulting the preview cache first.
func (e *Engine) attachPreviews(ctx context.Context, items []models.FeedItem) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := range items {
		album := items[i].Album
		if album == nil {
			continue
		}

		if e.previews != nil {
			if preview, ok := e.previews.Get(album.ID); ok {
				album.Preview = preview
				continue
			}
		}

		g.Go(func() error {
			preview, err := e.store.GetContentPreviewForAlbum(gctx, album.ID)
			if err != nil {
				return fmt.Errorf("preview for album %s: %w", album.ID, err)
			}
			album.Preview = preview
			if e.previews != nil {
				e.previews.Add(album.ID, preview)
			}
			return nil
		})
	}

	return g.Wait()
}

// takeItems unwraps up to n scored candidates into feed items.
func takeItems(cands []ScoredCandidate, n int) []models.FeedItem {
	if n > len(cands) {
		n = len(cands)
	}
	out := make([]models.FeedItem, 0, n)
	for _, sc := range cands[:n] {
		out = append(out, sc.Item)
	}
	return out
}

// buildMetadata counts item kinds and fills the page metadata.
func buildMetadata(items []models.FeedItem, diversified bool, window string) Metadata {
	albums := 0
	for _, it := range items {
		if it.IsAlbum() {
			albums++
		}
	}
	return Metadata{
		TotalItems:             len(items),
		AlbumCount:             albums,
		MediaCount:             len(items) - albums,
		DiversificationApplied: diversified,
		TimeWindow:             window,
	}
}

// cursorPtr maps the codec's empty-string "no further page" marker to
// a nil pointer so it serializes as JSON null.
func cursorPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
