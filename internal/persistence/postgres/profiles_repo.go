package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

type profilesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewProfilesRepo creates the PostgreSQL resonance profile repository.
func NewProfilesRepo(db *sqlx.DB, timeout time.Duration) persistence.ProfilesRepo {
	return &profilesRepo{db: db, timeout: timeout}
}

// profileRow adapts array columns through pq wrappers.
type profileRow struct {
	UserID             string            `db:"user_id"`
	Archetype          *models.Archetype `db:"archetype"`
	Style              *models.Style     `db:"style"`
	DominantEmotions   pq.StringArray    `db:"dominant_emotions"`
	PeakHours          pq.Float64Array   `db:"peak_hours"`
	VocabularyRichness float64           `db:"vocabulary_richness"`
	HumorScore         float64           `db:"humor_score"`
	DepthScore         float64           `db:"depth_score"`
	Completeness       float64           `db:"completeness"`
	EmbeddingGenerated bool              `db:"embedding_generated"`
	ModelVersion       string            `db:"model_version"`
	RecalculatedAt     time.Time         `db:"recalculated_at"`
}

func (r profileRow) toModel() *models.ResonanceProfile {
	return &models.ResonanceProfile{
		UserID:             r.UserID,
		Archetype:          r.Archetype,
		Style:              r.Style,
		DominantEmotions:   []string(r.DominantEmotions),
		PeakHours:          []float64(r.PeakHours),
		VocabularyRichness: r.VocabularyRichness,
		HumorScore:         r.HumorScore,
		DepthScore:         r.DepthScore,
		Completeness:       r.Completeness,
		EmbeddingGenerated: r.EmbeddingGenerated,
		ModelVersion:       r.ModelVersion,
		RecalculatedAt:     r.RecalculatedAt,
	}
}

const profileColumns = `user_id, archetype, style, dominant_emotions, peak_hours,
	vocabulary_richness, humor_score, depth_score, completeness,
	embedding_generated, model_version, recalculated_at`

func (r *profilesRepo) Get(ctx context.Context, userID string) (*models.ResonanceProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row profileRow
	query := `SELECT ` + profileColumns + ` FROM resonance_profiles WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return row.toModel(), nil
}

func (r *profilesRepo) GetBatch(ctx context.Context, userIDs []string) (map[string]*models.ResonanceProfile, error) {
	if len(userIDs) == 0 {
		return map[string]*models.ResonanceProfile{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + profileColumns + ` FROM resonance_profiles WHERE user_id = ANY($1)`
	var rows []profileRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(userIDs)); err != nil {
		return nil, fmt.Errorf("batch get profiles: %w", err)
	}
	out := make(map[string]*models.ResonanceProfile, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.toModel()
	}
	return out, nil
}

func (r *profilesRepo) Upsert(ctx context.Context, p *models.ResonanceProfile) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO resonance_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			archetype = EXCLUDED.archetype,
			style = EXCLUDED.style,
			dominant_emotions = EXCLUDED.dominant_emotions,
			peak_hours = EXCLUDED.peak_hours,
			vocabulary_richness = EXCLUDED.vocabulary_richness,
			humor_score = EXCLUDED.humor_score,
			depth_score = EXCLUDED.depth_score,
			completeness = EXCLUDED.completeness,
			embedding_generated = EXCLUDED.embedding_generated,
			model_version = EXCLUDED.model_version,
			recalculated_at = EXCLUDED.recalculated_at`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Archetype, p.Style,
		pq.Array(p.DominantEmotions), pq.Array(p.PeakHours),
		p.VocabularyRichness, p.HumorScore, p.DepthScore, p.Completeness,
		p.EmbeddingGenerated, p.ModelVersion, p.RecalculatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

func (r *profilesRepo) Delete(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM resonance_profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete profile %s: %w", userID, err)
	}
	return nil
}
