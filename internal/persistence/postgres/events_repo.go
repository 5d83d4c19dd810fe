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

type eventsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewEventsRepo creates the PostgreSQL behavioral event repository.
func NewEventsRepo(db *sqlx.DB, timeout time.Duration) persistence.EventsRepo {
	return &eventsRepo{db: db, timeout: timeout}
}

const eventColumns = `id, user_id, session_id, event_type, event_data, client_ts, server_ts`

func (r *eventsRepo) InsertBatch(ctx context.Context, events []models.BehavioralEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin event batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO behavioral_events (id, user_id, session_id, event_type, event_data, client_ts, server_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return 0, fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()

	accepted := 0
	for _, e := range events {
		var data interface{}
		if len(e.EventData) > 0 {
			data = []byte(e.EventData)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.UserID, e.SessionID, e.EventType, data, e.ClientTS, e.ServerTS); err != nil {
			return 0, fmt.Errorf("insert event %s: %w", e.ID, err)
		}
		accepted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit event batch: %w", err)
	}
	return accepted, nil
}

func (r *eventsRepo) Latest(ctx context.Context, userID string, eventType models.EventType) (*models.BehavioralEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var e models.BehavioralEvent
	query := `SELECT ` + eventColumns + ` FROM behavioral_events
		WHERE user_id = $1 AND event_type = $2
		ORDER BY client_ts DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &e, query, userID, string(eventType)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s for %s: %w", eventType, userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("latest event %s for %s: %w", eventType, userID, err)
	}
	return &e, nil
}

func (r *eventsRepo) ListByTypes(ctx context.Context, userID string, types []models.EventType, limit int) ([]models.BehavioralEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	query := `SELECT ` + eventColumns + ` FROM behavioral_events
		WHERE user_id = $1 AND event_type = ANY($2)
		ORDER BY client_ts DESC LIMIT $3`
	var rows []models.BehavioralEvent
	if err := r.db.SelectContext(ctx, &rows, query, userID, pq.Array(names), limit); err != nil {
		return nil, fmt.Errorf("list events for %s: %w", userID, err)
	}
	return rows, nil
}

func (r *eventsRepo) CountByType(ctx context.Context, userID string, eventType models.EventType) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n int
	query := `SELECT COUNT(*) FROM behavioral_events WHERE user_id = $1 AND event_type = $2`
	if err := r.db.GetContext(ctx, &n, query, userID, string(eventType)); err != nil {
		return 0, fmt.Errorf("count events %s for %s: %w", eventType, userID, err)
	}
	return n, nil
}
