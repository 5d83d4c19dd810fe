// Package postgres implements the persistence repositories on PostgreSQL via
// sqlx. Every call applies its own deadline so a slow query cannot hold a
// handler past the invoker's budget.
package postgres

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/persistence"
)

// Connect opens a pooled connection using the configured DSN.
func Connect(cfg config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// NewRepository wires all repos over one pool with a shared per-query timeout.
func NewRepository(db *sqlx.DB, timeout time.Duration) *persistence.Repository {
	return &persistence.Repository{
		Users:         NewUsersRepo(db, timeout),
		Profiles:      NewProfilesRepo(db, timeout),
		Events:        NewEventsRepo(db, timeout),
		Messages:      NewMessagesRepo(db, timeout),
		Conversations: NewConversationsRepo(db, timeout),
		Matches:       NewMatchesRepo(db, timeout),
		Blocks:        NewBlocksRepo(db, timeout),
	}
}
