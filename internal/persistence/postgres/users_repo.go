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

type usersRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewUsersRepo creates the PostgreSQL users repository.
func NewUsersRepo(db *sqlx.DB, timeout time.Duration) persistence.UsersRepo {
	return &usersRepo{db: db, timeout: timeout}
}

const userColumns = `id, display_name, bio, pronouns, city, country, latitude, longitude,
	voice_intro_url, subscription_tier, onboarding_completed, last_active_at, deleted_at, created_at`

func (r *usersRepo) Get(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

func (r *usersRepo) GetBatch(ctx context.Context, ids []string) (map[string]*models.User, error) {
	if len(ids) == 0 {
		return map[string]*models.User{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) AND deleted_at IS NULL`
	var rows []models.User
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("batch get users: %w", err)
	}
	out := make(map[string]*models.User, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *usersRepo) ListActive(ctx context.Context, activeSince time.Time, limit int) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users
		WHERE last_active_at >= $1 AND deleted_at IS NULL AND onboarding_completed = true
		ORDER BY last_active_at DESC LIMIT $2`
	var rows []models.User
	if err := r.db.SelectContext(ctx, &rows, query, activeSince, limit); err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return rows, nil
}

func (r *usersRepo) UpdatePatch(ctx context.Context, id string, patch persistence.UserPatch) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `UPDATE users SET
			display_name = COALESCE($2, display_name),
			bio          = COALESCE($3, bio),
			pronouns     = COALESCE($4, pronouns),
			city         = COALESCE($5, city),
			country      = COALESCE($6, country)
		WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id,
		patch.DisplayName, patch.Bio, patch.Pronouns, patch.City, patch.Country)
	if err != nil {
		return fmt.Errorf("patch user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *usersRepo) CompleteOnboarding(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET onboarding_completed = true WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("complete onboarding %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil
}
