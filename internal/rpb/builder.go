package rpb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/infrastructure/cache"
	"github.com/resonatelabs/resonate/internal/infrastructure/llm"
	"github.com/resonatelabs/resonate/internal/infrastructure/vector"
	"github.com/resonatelabs/resonate/internal/metrics"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

// Builder orchestrates one profile rebuild: aggregate, classify, embed,
// upsert, invalidate. It is the sole writer of a user's profile row and
// vector.
type Builder struct {
	repo       *persistence.Repository
	cache      cache.Cache
	index      vector.Index
	embedder   llm.Embedder
	aggregator *Aggregator
	cfg        config.RebuildConfig
}

// NewBuilder wires a Builder.
func NewBuilder(repo *persistence.Repository, c cache.Cache, index vector.Index, embedder llm.Embedder, cfg config.RebuildConfig) *Builder {
	return &Builder{
		repo:       repo,
		cache:      c,
		index:      index,
		embedder:   embedder,
		aggregator: NewAggregator(repo),
		cfg:        cfg,
	}
}

// Rebuild recomputes one user's profile. Embedding failure is not fatal: the
// row is still committed with EmbeddingGenerated=false. Cache invalidation
// happens after the row commit so consumers never read pre-commit state.
func (b *Builder) Rebuild(ctx context.Context, userID string) (*models.ResonanceProfile, error) {
	user, err := b.repo.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	bundle, err := b.aggregator.Collect(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("aggregate signals for %s: %w", userID, err)
	}

	cls := Classify(bundle)
	profile := &models.ResonanceProfile{
		UserID:             userID,
		Archetype:          &cls.Archetype,
		Style:              &cls.Style,
		DominantEmotions:   cls.DominantEmotions,
		PeakHours:          peakHours(bundle),
		VocabularyRichness: cls.VocabRichness,
		HumorScore:         cls.HumorScore,
		DepthScore:         cls.DepthScore,
		Completeness:       bundle.Completeness(),
		ModelVersion:       b.cfg.ModelVersion,
		RecalculatedAt:     time.Now().UTC(),
	}

	prompt := BuildEmbeddingPrompt(user, bundle)
	values, usage, err := b.embedder.Embed(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("embedding failed, committing partial profile")
	} else {
		metrics.LLMTokens.WithLabelValues("embedding", "prompt").Add(float64(usage.PromptTokens))
		if err := b.index.Upsert(ctx, userID, values, vectorMetadata(user, cls)); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("vector upsert failed, committing partial profile")
		} else {
			profile.EmbeddingGenerated = true
		}
	}

	if err := b.repo.Profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("commit profile for %s: %w", userID, err)
	}

	if err := b.invalidateDerived(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("post-rebuild cache invalidation failed")
	}

	log.Info().
		Str("user_id", userID).
		Str("archetype", string(cls.Archetype)).
		Str("style", string(cls.Style)).
		Float64("completeness", profile.Completeness).
		Bool("embedded", profile.EmbeddingGenerated).
		Msg("profile rebuilt")
	return profile, nil
}

// Summary reports a batch pass to the scheduler.
type Summary struct {
	Rebuilt int `json:"rebuilt"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RebuildAll runs the daily pass over active users, skipping fresh profiles.
// Per-user failures are swallowed and counted.
func (b *Builder) RebuildAll(ctx context.Context) (Summary, error) {
	var s Summary

	cutoff := time.Now().UTC().AddDate(0, 0, -b.cfg.ActiveWithinDays)
	users, err := b.repo.Users.ListActive(ctx, cutoff, 10000)
	if err != nil {
		return s, fmt.Errorf("list active users: %w", err)
	}

	staleBefore := time.Now().UTC().Add(-time.Duration(b.cfg.StaleAfterHours) * time.Hour)
	for _, u := range users {
		if ctx.Err() != nil {
			return s, ctx.Err()
		}
		profile, err := b.repo.Profiles.Get(ctx, u.ID)
		if err == nil && profile.RecalculatedAt.After(staleBefore) {
			s.Skipped++
			metrics.ProfileRebuilds.WithLabelValues("skipped").Inc()
			continue
		}
		if _, err := b.Rebuild(ctx, u.ID); err != nil {
			log.Warn().Err(err).Str("user_id", u.ID).Msg("daily rebuild failed for user")
			s.Failed++
			metrics.ProfileRebuilds.WithLabelValues("failed").Inc()
			continue
		}
		s.Rebuilt++
		metrics.ProfileRebuilds.WithLabelValues("rebuilt").Inc()
	}

	log.Info().Int("rebuilt", s.Rebuilt).Int("skipped", s.Skipped).Int("failed", s.Failed).Msg("daily rebuild pass complete")
	return s, nil
}

// DeleteUserData removes the vector and derived cache entries for a deleted
// account. The relational cascade removes the rows.
func (b *Builder) DeleteUserData(ctx context.Context, userID string) error {
	if err := b.index.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete vector for %s: %w", userID, err)
	}
	if err := b.repo.Profiles.Delete(ctx, userID); err != nil {
		return err
	}
	return b.invalidateDerived(ctx, userID)
}

// invalidateDerived drops every cached artifact derived from the user: the
// user:{id}:* namespace plus pair scores where the id sits in either position.
func (b *Builder) invalidateDerived(ctx context.Context, userID string) error {
	patterns := append([]string{cache.UserPattern(userID)}, cache.ERSPatterns(userID)...)
	for _, p := range patterns {
		if _, err := b.cache.ScanDelete(ctx, p); err != nil {
			return fmt.Errorf("invalidate %s: %w", p, err)
		}
	}
	return nil
}

func peakHours(b *SignalBundle) []float64 {
	if b.Sessions != nil {
		return b.Sessions.HourlyActivity
	}
	return make([]float64, 24)
}

func vectorMetadata(user *models.User, cls Classification) map[string]interface{} {
	md := map[string]interface{}{
		"userId":     user.ID,
		"archetype":  string(cls.Archetype),
		"style":      string(cls.Style),
		"lastActive": user.LastActiveAt.UTC().Format(time.RFC3339),
	}
	if user.City != nil {
		md["city"] = *user.City
	}
	md["subscriptionTier"] = string(user.SubscriptionTier)
	return md
}
