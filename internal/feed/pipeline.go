// Package feed is the Dynamic Feed Ranking Engine: a five-stage pipeline that
// materializes one viewer's ordered discovery feed with page caching.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/ers"
	"github.com/resonatelabs/resonate/internal/infrastructure/cache"
	"github.com/resonatelabs/resonate/internal/infrastructure/vector"
	"github.com/resonatelabs/resonate/internal/metrics"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

// RankedProfile is one feed entry.
type RankedProfile struct {
	UserID         string               `json:"user_id"`
	FinalScore     float64              `json:"final_score"`
	Archetype      models.Archetype     `json:"archetype,omitempty"`
	ResonanceScore int                  `json:"resonance_score"`
	Waveform       *ers.WaveformPayload `json:"waveform,omitempty"`
	DiversityBonus float64              `json:"diversity_bonus,omitempty"`
}

// DebugSummary explains a feed build.
type DebugSummary struct {
	Retrieved          int            `json:"retrieved"`
	AfterSafety        int            `json:"after_safety"`
	ArchetypeHistogram map[string]int `json:"archetype_histogram"`
}

// Page is one emitted feed page.
type Page struct {
	Profiles []RankedProfile `json:"profiles"`
	Cursor   *string         `json:"cursor"` // next page, nil when exhausted
	Total    int             `json:"total"`
	Debug    DebugSummary    `json:"debug"`
}

// rankedList is the cached output of stages 1-3.
type rankedList struct {
	Entries []RankedProfile `json:"entries"`
	Debug   DebugSummary    `json:"debug"`
}

// candidate moves between retrieval and scoring; VectorScore is nil for
// database-fallback candidates.
type candidate struct {
	UserID      string
	VectorScore *float64
}

// Soft score weights.
const (
	weightERS           = 0.40
	weightFreshness     = 0.15
	weightReserved      = 0.15 // future engagement signal, currently zero
	weightFollowThrough = 0.15
	weightSubscription  = 0.15

	ghostWindow = 20
)

// Pipeline executes the five stages for one viewer per call.
type Pipeline struct {
	repo  *persistence.Repository
	cache cache.Cache
	index vector.Index
	ers   *ers.Engine
	cfg   config.FeedConfig
	now   func() time.Time
}

// NewPipeline wires a Pipeline.
func NewPipeline(repo *persistence.Repository, c cache.Cache, index vector.Index, engine *ers.Engine, cfg config.FeedConfig) *Pipeline {
	return &Pipeline{repo: repo, cache: c, index: index, ers: engine, cfg: cfg, now: time.Now}
}

// Discover returns one page of the viewer's ranked feed, building and caching
// the ranked list on the first page and serving later cursors from cache.
func (p *Pipeline) Discover(ctx context.Context, viewerID string, cursor *string, limit int) (*Page, error) {
	metrics.FeedRequests.Inc()
	if limit <= 0 {
		limit = p.cfg.PageSize
	}
	if limit > 50 {
		return nil, fmt.Errorf("limit %d out of range: %w", limit, models.ErrValidation)
	}

	pageNum := 0
	if cursor != nil {
		n, err := strconv.Atoi(*cursor)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad cursor %q: %w", *cursor, models.ErrValidation)
		}
		pageNum = n
	}

	// Serve a previously emitted page verbatim.
	var cachedPage Page
	if err := p.cache.Get(ctx, cache.FeedPageKey(viewerID, strconv.Itoa(pageNum)), &cachedPage); err == nil {
		metrics.CacheOutcomes.WithLabelValues("feed_page", "hit").Inc()
		return &cachedPage, nil
	}
	metrics.CacheOutcomes.WithLabelValues("feed_page", "miss").Inc()

	ranked, err := p.rankedFor(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return p.emitPage(ctx, viewerID, ranked, pageNum, limit), nil
}

// rankedFor returns the viewer's ranked list, from cache or a fresh build.
func (p *Pipeline) rankedFor(ctx context.Context, viewerID string) (*rankedList, error) {
	var cached rankedList
	if err := p.cache.Get(ctx, cache.FeedRankedKey(viewerID), &cached); err == nil {
		metrics.CacheOutcomes.WithLabelValues("feed_ranked", "hit").Inc()
		return &cached, nil
	}
	metrics.CacheOutcomes.WithLabelValues("feed_ranked", "miss").Inc()

	ranked, err := p.build(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(p.cfg.PageTTLSeconds) * time.Second
	if err := p.cache.Set(ctx, cache.FeedRankedKey(viewerID), ranked, ttl); err != nil {
		log.Warn().Err(err).Str("user_id", viewerID).Msg("ranked feed cache write failed")
	}
	return ranked, nil
}

// build runs stages 1-3.
func (p *Pipeline) build(ctx context.Context, viewerID string) (*rankedList, error) {
	start := p.now()

	candidates, err := p.retrieve(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	metrics.StageLatency.WithLabelValues("feed", "retrieval").Observe(p.now().Sub(start).Seconds())
	retrieved := len(candidates)

	safeStart := p.now()
	candidates, err = p.filterSafety(ctx, viewerID, candidates)
	if err != nil {
		return nil, err
	}
	metrics.StageLatency.WithLabelValues("feed", "safety").Observe(p.now().Sub(safeStart).Seconds())

	scoreStart := p.now()
	entries, err := p.scoreCandidates(ctx, viewerID, candidates)
	if err != nil {
		return nil, err
	}
	metrics.StageLatency.WithLabelValues("feed", "scoring").Observe(p.now().Sub(scoreStart).Seconds())

	histogram := map[string]int{}
	for _, e := range entries {
		histogram[string(e.Archetype)]++
	}

	log.Debug().
		Str("user_id", viewerID).
		Int("retrieved", retrieved).
		Int("after_safety", len(candidates)).
		Int("scored", len(entries)).
		Msg("feed ranked list built")

	return &rankedList{
		Entries: entries,
		Debug: DebugSummary{
			Retrieved:          retrieved,
			AfterSafety:        len(candidates),
			ArchetypeHistogram: histogram,
		},
	}, nil
}

// retrieve is stage 1: ANN lookup with the viewer's stored vector, falling
// back to a bounded database scan when the index is unavailable. A viewer
// without a profile yields an empty feed.
func (p *Pipeline) retrieve(ctx context.Context, viewerID string) ([]candidate, error) {
	if _, err := p.repo.Profiles.Get(ctx, viewerID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	viewerVec, err := p.index.Fetch(ctx, viewerID)
	if err == nil && viewerVec != nil {
		matches, qerr := p.index.Query(ctx, viewerVec, p.cfg.RetrievalTopK, vector.Filter{"userId": vector.Ne(viewerID)})
		if qerr == nil {
			out := make([]candidate, 0, len(matches))
			for _, m := range matches {
				score := m.Score
				out = append(out, candidate{UserID: m.ID, VectorScore: &score})
			}
			return out, nil
		}
		err = qerr
	}
	if err != nil {
		log.Warn().Err(err).Str("user_id", viewerID).Msg("vector retrieval failed, falling back to database scan")
	}

	cutoff := p.now().UTC().AddDate(0, 0, -7)
	users, err := p.repo.Users.ListActive(ctx, cutoff, p.cfg.RetrievalTopK)
	if err != nil {
		return nil, fmt.Errorf("fallback candidate scan: %w", err)
	}
	out := make([]candidate, 0, len(users))
	for _, u := range users {
		if u.ID == viewerID {
			continue
		}
		out = append(out, candidate{UserID: u.ID})
	}
	return out, nil
}

// filterSafety is stage 2: drop anyone in the viewer's block, passed, prior
// resonate or blocked-by sets, plus database block rows in either direction.
// The four cache set reads run in parallel.
func (p *Pipeline) filterSafety(ctx context.Context, viewerID string, candidates []candidate) ([]candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	sets := make([][]string, 4)
	keys := []string{
		cache.BlocksKey(viewerID),
		cache.PassedKey(viewerID),
		cache.ResonatedKey(viewerID),
		cache.BlockedByKey(viewerID),
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			members, err := p.cache.SMembers(gctx, key)
			if err != nil {
				return err
			}
			sets[i] = members
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("safety set reads: %w", err)
	}

	blocked, err := p.repo.Blocks.InvolvedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	excluded := map[string]struct{}{}
	for _, set := range sets {
		for _, id := range set {
			excluded[id] = struct{}{}
		}
	}
	for _, id := range blocked {
		excluded[id] = struct{}{}
	}

	out := candidates[:0]
	for _, c := range candidates {
		if _, skip := excluded[c.UserID]; !skip {
			out = append(out, c)
		}
	}
	return out, nil
}

// emitPage is stages 4-5: diversity injection on the page slice, then cursor
// assembly and page caching.
func (p *Pipeline) emitPage(ctx context.Context, viewerID string, ranked *rankedList, pageNum, limit int) *Page {
	startIdx := pageNum * limit
	if startIdx > len(ranked.Entries) {
		startIdx = len(ranked.Entries)
	}
	// Oversized slice gives the diversity pass replacement material.
	endIdx := startIdx + limit + diversityOverflow
	if endIdx > len(ranked.Entries) {
		endIdx = len(ranked.Entries)
	}

	window := make([]RankedProfile, endIdx-startIdx)
	copy(window, ranked.Entries[startIdx:endIdx])
	profiles := injectDiversity(window, limit)

	var next *string
	if startIdx+len(profiles) < len(ranked.Entries) {
		s := strconv.Itoa(pageNum + 1)
		next = &s
	}

	page := &Page{
		Profiles: profiles,
		Cursor:   next,
		Total:    len(ranked.Entries),
		Debug:    ranked.Debug,
	}

	ttl := time.Duration(p.cfg.PageTTLSeconds) * time.Second
	if err := p.cache.Set(ctx, cache.FeedPageKey(viewerID, strconv.Itoa(pageNum)), page, ttl); err != nil {
		log.Warn().Err(err).Str("user_id", viewerID).Msg("feed page cache write failed")
	}
	return page
}
