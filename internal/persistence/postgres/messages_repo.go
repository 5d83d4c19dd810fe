package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

type messagesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMessagesRepo creates the PostgreSQL messages repository.
func NewMessagesRepo(db *sqlx.DB, timeout time.Duration) persistence.MessagesRepo {
	return &messagesRepo{db: db, timeout: timeout}
}

const messageColumns = `id, conversation_id, sender_id, content, content_type,
	sentiment, emotion_tag, sent_at, read_at, deleted_at`

func (r *messagesRepo) ListBySender(ctx context.Context, senderID string, limit int) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE sender_id = $1 AND deleted_at IS NULL
		ORDER BY sent_at DESC LIMIT $2`
	var rows []models.Message
	if err := r.db.SelectContext(ctx, &rows, query, senderID, limit); err != nil {
		return nil, fmt.Errorf("list messages by sender %s: %w", senderID, err)
	}
	return rows, nil
}

func (r *messagesRepo) ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE conversation_id = $1 AND deleted_at IS NULL
		ORDER BY sent_at DESC LIMIT $2`
	var rows []models.Message
	if err := r.db.SelectContext(ctx, &rows, query, conversationID, limit); err != nil {
		return nil, fmt.Errorf("list messages for conversation %s: %w", conversationID, err)
	}
	return rows, nil
}
