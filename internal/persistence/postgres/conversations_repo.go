package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

type conversationsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewConversationsRepo creates the PostgreSQL conversations repository.
func NewConversationsRepo(db *sqlx.DB, timeout time.Duration) persistence.ConversationsRepo {
	return &conversationsRepo{db: db, timeout: timeout}
}

const conversationColumns = `id, match_id, last_message_at, health_state, pending_nudge,
	nudge_generated_at, archived_by_a, archived_by_b, created_at`

func (r *conversationsRepo) Get(ctx context.Context, id string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var c models.Conversation
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return &c, nil
}

func (r *conversationsRepo) ListActiveSince(ctx context.Context, cutoff time.Time) ([]models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE last_message_at >= $1
		ORDER BY last_message_at DESC`
	var rows []models.Conversation
	if err := r.db.SelectContext(ctx, &rows, query, cutoff); err != nil {
		return nil, fmt.Errorf("list active conversations: %w", err)
	}
	return rows, nil
}

func (r *conversationsRepo) UpdateHealth(ctx context.Context, id string, state models.ConversationState, nudge *string, nudgeAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// A nil nudge keeps any existing pending nudge; the UI clears it on delivery.
	query := `UPDATE conversations SET
			health_state = $2,
			pending_nudge = COALESCE($3, pending_nudge),
			nudge_generated_at = COALESCE($4, nudge_generated_at)
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, string(state), nudge, nudgeAt)
	if err != nil {
		return fmt.Errorf("update conversation health %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *conversationsRepo) Participants(ctx context.Context, id string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var pair struct {
		UserAID string `db:"user_a_id"`
		UserBID string `db:"user_b_id"`
	}
	query := `SELECT m.user_a_id, m.user_b_id
		FROM conversations c JOIN matches m ON m.id = c.match_id
		WHERE c.id = $1`
	if err := r.db.GetContext(ctx, &pair, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
		}
		return "", "", fmt.Errorf("participants of %s: %w", id, err)
	}
	return pair.UserAID, pair.UserBID, nil
}
