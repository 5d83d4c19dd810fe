package ers

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/resonatelabs/resonate/internal/infrastructure/cache"
	"github.com/resonatelabs/resonate/internal/metrics"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

// Breakdown is the per-component contribution before weighting, each in [0,1].
type Breakdown struct {
	VectorSimilarity  float64 `json:"vector_similarity"`
	Chronobiological  float64 `json:"chronobiological"`
	Communication     float64 `json:"communication"`
	DepthAlignment    float64 `json:"depth_alignment"`
	ArchetypeAffinity float64 `json:"archetype_affinity"`
}

// Result is one scored pair.
type Result struct {
	TotalScore int              `json:"total_score"` // [0,100]
	BaseScore  float64          `json:"base_score"`
	Breakdown  Breakdown        `json:"breakdown"`
	Modifiers  Modifiers        `json:"modifiers"`
	Waveform   *WaveformPayload `json:"waveform"`
}

// Engine scores pairs, caching results per canonical pair for one hour.
// Profile rebuilds drop a user's pair scores through cache.ERSPatterns.
type Engine struct {
	repo  *persistence.Repository
	cache cache.Cache
	now   func() time.Time
}

// NewEngine wires an Engine.
func NewEngine(repo *persistence.Repository, c cache.Cache) *Engine {
	return &Engine{repo: repo, cache: c, now: time.Now}
}

// Score computes the resonance of a pair. vectorSim, when the caller already
// holds an ANN score, overrides the default similarity component. Missing
// users or profiles raise NotFound.
func (e *Engine) Score(ctx context.Context, idA, idB string, vectorSim *float64) (*Result, error) {
	key := cache.ERSKey(idA, idB)
	var cached Result
	if err := e.cache.Get(ctx, key, &cached); err == nil {
		metrics.CacheOutcomes.WithLabelValues("ers", "hit").Inc()
		return &cached, nil
	}
	metrics.CacheOutcomes.WithLabelValues("ers", "miss").Inc()

	var (
		profA, profB *models.ResonanceProfile
		userA, userB *models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { profA, err = e.repo.Profiles.Get(gctx, idA); return })
	g.Go(func() (err error) { profB, err = e.repo.Profiles.Get(gctx, idB); return })
	g.Go(func() (err error) { userA, err = e.repo.Users.Get(gctx, idA); return })
	g.Go(func() (err error) { userB, err = e.repo.Users.Get(gctx, idB); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load pair %s/%s: %w", idA, idB, err)
	}

	result := e.compose(userA, userB, profA, profB, vectorSim)
	result.Waveform = buildWaveform(idA, idB, profA, profB)
	metrics.ERSComputations.Inc()

	// Best effort: a failed cache write only costs a recompute.
	_ = e.cache.Set(ctx, key, result, cache.TTLERSScore)
	return result, nil
}

func (e *Engine) compose(userA, userB *models.User, profA, profB *models.ResonanceProfile, vectorSim *float64) *Result {
	sim := defaultComponent
	if vectorSim != nil {
		sim = clamp(*vectorSim, 0, 1)
	}

	breakdown := Breakdown{
		VectorSimilarity:  sim,
		Chronobiological:  chronobiologicalOverlap(profA.PeakHours, profB.PeakHours),
		Communication:     styleCompatibility(profA.Style, profB.Style),
		DepthAlignment:    depthAlignment(profA.DepthScore, profB.DepthScore),
		ArchetypeAffinity: archetypeComplementarity(profA.Archetype, profB.Archetype),
	}

	base := breakdown.VectorSimilarity*weightVectorSim +
		breakdown.Chronobiological*weightChrono +
		breakdown.Communication*weightCommunication +
		breakdown.DepthAlignment*weightDepth +
		breakdown.ArchetypeAffinity*weightArchetype

	mods := computeModifiers(userA, userB, profA, profB, e.now())
	total := base * mods.Geographic * mods.Recency * mods.Completeness * mods.MutualInterest

	return &Result{
		TotalScore: int(math.Round(clamp(total, 0, 100))),
		BaseScore:  base,
		Breakdown:  breakdown,
		Modifiers:  mods,
	}
}
