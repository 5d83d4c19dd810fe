// Package service is the synchronous RPC surface consumed by the UI gateway:
// profile reads and patches, event ingestion, and feed discovery. Transport
// and authentication live outside; callers arrive with a verified user id.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/resonatelabs/resonate/internal/feed"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

// Field limits for profile patches.
const (
	displayNameMin = 2
	displayNameMax = 50
	bioMax         = 500
	pronounsMax    = 20

	maxTrackedEvents = 100
)

// errInternal is what callers see in place of wrapped infrastructure errors.
var errInternal = errors.New("internal error")

// Service exposes the RPC operations.
type Service struct {
	repo *persistence.Repository
	feed *feed.Pipeline
	now  func() time.Time
}

// New wires a Service.
func New(repo *persistence.Repository, pipeline *feed.Pipeline) *Service {
	return &Service{repo: repo, feed: pipeline, now: time.Now}
}

// UserWithProfile is the getMe response. Profile is nil before the first
// rebuild.
type UserWithProfile struct {
	User    *models.User             `json:"user"`
	Profile *models.ResonanceProfile `json:"profile,omitempty"`
}

// GetMe returns the caller's user row and resonance profile, if built.
func (s *Service) GetMe(ctx context.Context, userID string) (*UserWithProfile, error) {
	user, err := s.repo.Users.Get(ctx, userID)
	if err != nil {
		return nil, s.sanitize(err, "get user")
	}
	profile, err := s.repo.Profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, s.sanitize(err, "get profile")
	}
	return &UserWithProfile{User: user, Profile: profile}, nil
}

// ProfilePatch carries the editable fields; nil fields stay untouched.
type ProfilePatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Pronouns    *string `json:"pronouns,omitempty"`
	City        *string `json:"city,omitempty"`
	Country     *string `json:"country,omitempty"`
}

func (p *ProfilePatch) validate() error {
	if p.DisplayName != nil {
		if n := utf8.RuneCountInString(*p.DisplayName); n < displayNameMin || n > displayNameMax {
			return fmt.Errorf("display name length %d out of [%d,%d]: %w", n, displayNameMin, displayNameMax, models.ErrValidation)
		}
	}
	if p.Bio != nil && utf8.RuneCountInString(*p.Bio) > bioMax {
		return fmt.Errorf("bio exceeds %d characters: %w", bioMax, models.ErrValidation)
	}
	if p.Pronouns != nil && utf8.RuneCountInString(*p.Pronouns) > pronounsMax {
		return fmt.Errorf("pronouns exceed %d characters: %w", pronounsMax, models.ErrValidation)
	}
	return nil
}

// UpdateProfile applies a sparse patch after validation. No side effects on
// validation failure.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) error {
	if err := patch.validate(); err != nil {
		return err
	}
	err := s.repo.Users.UpdatePatch(ctx, userID, persistence.UserPatch{
		DisplayName: patch.DisplayName,
		Bio:         patch.Bio,
		Pronouns:    patch.Pronouns,
		City:        patch.City,
		Country:     patch.Country,
	})
	return s.sanitize(err, "update profile")
}

// CompleteOnboarding flips the caller's onboarding flag.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string) error {
	return s.sanitize(s.repo.Users.CompleteOnboarding(ctx, userID), "complete onboarding")
}

// TrackedEvent is one client-reported behavioral event.
type TrackedEvent struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
	ClientTS  time.Time       `json:"clientTs"`
}

// TrackEvents appends a batch of behavioral events and returns the accepted
// count. Unknown event types are stored verbatim; the aggregators ignore them.
func (s *Service) TrackEvents(ctx context.Context, userID, sessionID string, events []TrackedEvent) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session id required: %w", models.ErrValidation)
	}
	if len(events) == 0 {
		return 0, nil
	}
	if len(events) > maxTrackedEvents {
		return 0, fmt.Errorf("batch of %d exceeds %d events: %w", len(events), maxTrackedEvents, models.ErrValidation)
	}
	for _, e := range events {
		if e.EventType == "" {
			return 0, fmt.Errorf("event missing type: %w", models.ErrValidation)
		}
	}

	serverTS := s.now().UTC()
	rows := make([]models.BehavioralEvent, len(events))
	for i, e := range events {
		rows[i] = models.BehavioralEvent{
			ID:        uuid.NewString(),
			UserID:    userID,
			SessionID: sessionID,
			EventType: e.EventType,
			EventData: e.EventData,
			ClientTS:  e.ClientTS,
			ServerTS:  serverTS,
		}
	}
	accepted, err := s.repo.Events.InsertBatch(ctx, rows)
	if err != nil {
		return 0, s.sanitize(err, "insert events")
	}
	return accepted, nil
}

// DiscoverFeed returns one page of the caller's ranked feed.
func (s *Service) DiscoverFeed(ctx context.Context, userID string, cursor *string, limit int) (*feed.Page, error) {
	page, err := s.feed.Discover(ctx, userID, cursor, limit)
	if err != nil {
		return nil, s.sanitize(err, "discover feed")
	}
	return page, nil
}

// sanitize surfaces validation and not-found directly; anything else is
// logged and collapsed so infrastructure detail never leaks to the caller.
func (s *Service) sanitize(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrNotFound) {
		return err
	}
	log.Error().Err(err).Str("op", op).Msg("rpc operation failed")
	return errInternal
}
