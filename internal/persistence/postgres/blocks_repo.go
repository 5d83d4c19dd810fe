package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/resonatelabs/resonate/internal/persistence"
)

type blocksRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBlocksRepo creates the PostgreSQL blocks/reports repository.
func NewBlocksRepo(db *sqlx.DB, timeout time.Duration) persistence.BlocksRepo {
	return &blocksRepo{db: db, timeout: timeout}
}

// InvolvedUserIDs returns every counterpart in a block row involving the user,
// in either direction. Reports do not exclude candidates; blocks do.
func (r *blocksRepo) InvolvedUserIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT DISTINCT CASE WHEN reporter_id = $1 THEN reported_id ELSE reporter_id END AS other_id
		FROM blocks_reports
		WHERE type = 'block' AND (reporter_id = $1 OR reported_id = $1)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("blocked ids for %s: %w", userID, err)
	}
	return ids, nil
}
