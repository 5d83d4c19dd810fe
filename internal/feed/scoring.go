package feed

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/resonatelabs/resonate/internal/models"
)

// scoreCandidates is stage 3: batch-load profiles, users and ghost rates,
// then score each survivor with a bounded ERS fan-out and sort descending.
func (p *Pipeline) scoreCandidates(ctx context.Context, viewerID string, candidates []candidate) ([]RankedProfile, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.UserID)
	}

	var (
		profiles map[string]*models.ResonanceProfile
		users    map[string]*models.User
		ghosts   map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { profiles, err = p.repo.Profiles.GetBatch(gctx, ids); return })
	g.Go(func() (err error) { users, err = p.repo.Users.GetBatch(gctx, ids); return })
	g.Go(func() error {
		rates, err := p.repo.Matches.GhostRates(gctx, ids, ghostWindow)
		if err != nil {
			return err
		}
		ghosts = make(map[string]float64, len(rates))
		for id, r := range rates {
			ghosts[id] = r.Rate()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := p.now().UTC()
	entries := make([]RankedProfile, len(candidates))
	sg, sctx := errgroup.WithContext(ctx)
	sg.SetLimit(p.cfg.ScoreConcurrency)
	for i, c := range candidates {
		sg.Go(func() error {
			prof, ok := profiles[c.UserID]
			if !ok {
				return nil
			}
			user := users[c.UserID]

			res, err := p.ers.Score(sctx, viewerID, c.UserID, c.VectorScore)
			if err != nil {
				// One broken pair must not sink the feed.
				log.Warn().Err(err).Str("user_id", viewerID).Str("candidate_id", c.UserID).
					Msg("pair score failed, skipping candidate")
				return nil
			}

			fresh := 0.3
			ghost := 0.0
			boost := 0.0
			if user != nil {
				fresh = freshnessScore(now.Sub(user.LastActiveAt))
				ghost = ghostPenalty(ghosts[c.UserID])
				boost = subscriptionBoost(user.SubscriptionTier)
			}

			ersNorm := float64(res.TotalScore) / 100
			final := ersNorm*weightERS +
				fresh*weightFreshness +
				0*weightReserved +
				(1-ghost)*weightFollowThrough +
				(1+boost)*weightSubscription

			entries[i] = RankedProfile{
				UserID:         c.UserID,
				FinalScore:     final,
				Archetype:      archetypeOf(prof),
				ResonanceScore: res.TotalScore,
				Waveform:       res.Waveform,
			}
			return nil
		})
	}
	if err := sg.Wait(); err != nil {
		return nil, err
	}

	out := entries[:0]
	for _, e := range entries {
		if e.UserID != "" {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	return out, nil
}

func archetypeOf(p *models.ResonanceProfile) models.Archetype {
	if p == nil || p.Archetype == nil {
		return models.ArchetypeWave
	}
	return *p.Archetype
}

// freshnessScore decays with time since last activity.
func freshnessScore(since time.Duration) float64 {
	hours := since.Hours()
	switch {
	case hours <= 1:
		return 1.0
	case hours <= 24:
		return 0.9
	case hours <= 72:
		return 0.7
	default:
		return math.Max(0.3, 0.7-(hours-72)/168)
	}
}

// ghostPenalty converts a recent-match ghost rate into a capped penalty.
func ghostPenalty(rate float64) float64 {
	return math.Min(0.5, rate*0.7)
}

func subscriptionBoost(tier models.SubscriptionTier) float64 {
	switch tier {
	case models.TierPremium:
		return 0.10
	case models.TierPlus:
		return 0.05
	default:
		return 0
	}
}
