// Package persistence defines the typed repository surface of the relational
// store. Implementations live under postgres/.
package persistence

import (
	"context"
	"time"

	"github.com/resonatelabs/resonate/internal/models"
)

// UserPatch is a sparse update to a user's editable fields. Nil means leave
// the column untouched.
type UserPatch struct {
	DisplayName *string
	Bio         *string
	Pronouns    *string
	City        *string
	Country     *string
}

// UsersRepo reads and patches user rows. Creation belongs to the auth flow.
type UsersRepo interface {
	// Get returns a user by id, models.ErrNotFound when absent or soft-deleted.
	Get(ctx context.Context, id string) (*models.User, error)

	// GetBatch returns the existing users among ids, keyed by id.
	GetBatch(ctx context.Context, ids []string) (map[string]*models.User, error)

	// ListActive returns users active since the cutoff, not deleted, onboarded.
	ListActive(ctx context.Context, activeSince time.Time, limit int) ([]models.User, error)

	// UpdatePatch applies a sparse profile patch.
	UpdatePatch(ctx context.Context, id string, patch UserPatch) error

	// CompleteOnboarding flips the onboarding flag.
	CompleteOnboarding(ctx context.Context, id string) error
}

// ProfilesRepo owns resonance profile rows. The rebuild procedure is the sole
// writer for a given user.
type ProfilesRepo interface {
	// Get returns the profile for a user, models.ErrNotFound when absent.
	Get(ctx context.Context, userID string) (*models.ResonanceProfile, error)

	// GetBatch returns existing profiles among userIDs, keyed by user id.
	GetBatch(ctx context.Context, userIDs []string) (map[string]*models.ResonanceProfile, error)

	// Upsert writes the profile row, replacing any prior row for the user.
	Upsert(ctx context.Context, p *models.ResonanceProfile) error

	// Delete removes the profile row (account deletion cascade).
	Delete(ctx context.Context, userID string) error
}

// EventsRepo is the append-only behavioral event log.
type EventsRepo interface {
	// InsertBatch appends events; returns the number accepted.
	InsertBatch(ctx context.Context, events []models.BehavioralEvent) (int, error)

	// Latest returns the most recent event of a type for a user, or ErrNotFound.
	Latest(ctx context.Context, userID string, eventType models.EventType) (*models.BehavioralEvent, error)

	// ListByTypes returns events of the given types for a user, newest first.
	ListByTypes(ctx context.Context, userID string, types []models.EventType, limit int) ([]models.BehavioralEvent, error)

	// CountByType returns the number of events of one type for a user.
	CountByType(ctx context.Context, userID string, eventType models.EventType) (int, error)
}

// MessagesRepo reads message rows. Soft-deleted messages are excluded.
type MessagesRepo interface {
	// ListBySender returns a user's sent messages, newest first.
	ListBySender(ctx context.Context, senderID string, limit int) ([]models.Message, error)

	// ListByConversation returns a conversation's messages, newest first.
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
}

// ConversationsRepo owns conversation health rows.
type ConversationsRepo interface {
	// Get returns a conversation, models.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*models.Conversation, error)

	// ListActiveSince returns conversations with a message since the cutoff.
	ListActiveSince(ctx context.Context, cutoff time.Time) ([]models.Conversation, error)

	// UpdateHealth persists a state transition and an optional pending nudge.
	UpdateHealth(ctx context.Context, id string, state models.ConversationState, nudge *string, nudgeAt *time.Time) error

	// Participants returns the two user ids behind a conversation's match,
	// in canonical order.
	Participants(ctx context.Context, id string) (userA, userB string, err error)
}

// GhostRate summarizes match follow-through for one user.
type GhostRate struct {
	UserID    string `db:"user_id"`
	Matched   int    `db:"matched"`
	Unstarted int    `db:"unstarted"`
}

// Rate returns unstarted/matched, 0 when the user has no matched pairs.
func (g GhostRate) Rate() float64 {
	if g.Matched == 0 {
		return 0
	}
	return float64(g.Unstarted) / float64(g.Matched)
}

// MatchesRepo reads match rows for scoring context.
type MatchesRepo interface {
	// GhostRates aggregates matched vs never-started counts per user over each
	// user's most recent matches, in one query.
	GhostRates(ctx context.Context, userIDs []string, perUserWindow int) (map[string]GhostRate, error)
}

// BlocksRepo reads block/report rows for safety filtering.
type BlocksRepo interface {
	// InvolvedUserIDs returns the ids blocked by or blocking the user.
	InvolvedUserIDs(ctx context.Context, userID string) ([]string, error)
}

// Repository aggregates all repos behind one handle.
type Repository struct {
	Users         UsersRepo
	Profiles      ProfilesRepo
	Events        EventsRepo
	Messages      MessagesRepo
	Conversations ConversationsRepo
	Matches       MatchesRepo
	Blocks        BlocksRepo
}
