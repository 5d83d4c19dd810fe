package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/resonatelabs/resonate/internal/persistence"
)

type matchesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMatchesRepo creates the PostgreSQL matches repository.
func NewMatchesRepo(db *sqlx.DB, timeout time.Duration) persistence.MatchesRepo {
	return &matchesRepo{db: db, timeout: timeout}
}

// GhostRates counts, per user, matched pairs and matched-but-never-started
// pairs over each user's most recent matches. One query for the whole batch.
func (r *matchesRepo) GhostRates(ctx context.Context, userIDs []string, perUserWindow int) (map[string]persistence.GhostRate, error) {
	if len(userIDs) == 0 {
		return map[string]persistence.GhostRate{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT user_id,
		       COUNT(*) AS matched,
		       COUNT(*) FILTER (WHERE conversation_started_at IS NULL) AS unstarted
		FROM (
			SELECT sides.user_id, sides.conversation_started_at,
			       ROW_NUMBER() OVER (PARTITION BY sides.user_id ORDER BY sides.matched_at DESC) AS rn
			FROM (
				SELECT user_a_id AS user_id, matched_at, conversation_started_at
				FROM matches WHERE matched_at IS NOT NULL AND user_a_id = ANY($1)
				UNION ALL
				SELECT user_b_id AS user_id, matched_at, conversation_started_at
				FROM matches WHERE matched_at IS NOT NULL AND user_b_id = ANY($1)
			) sides
		) ranked
		WHERE rn <= $2
		GROUP BY user_id`

	var rows []persistence.GhostRate
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(userIDs), perUserWindow); err != nil {
		return nil, fmt.Errorf("ghost rates: %w", err)
	}
	out := make(map[string]persistence.GhostRate, len(rows))
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}
