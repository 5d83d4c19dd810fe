package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

type fakeUsers struct {
	users     map[string]*models.User
	patches   []persistence.UserPatch
	onboarded []string
	err       error
}

func (f *fakeUsers) Get(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUsers) GetBatch(ctx context.Context, ids []string) (map[string]*models.User, error) {
	return nil, nil
}

func (f *fakeUsers) ListActive(ctx context.Context, since time.Time, limit int) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUsers) UpdatePatch(ctx context.Context, id string, patch persistence.UserPatch) error {
	if f.err != nil {
		return f.err
	}
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeUsers) CompleteOnboarding(ctx context.Context, id string) error {
	f.onboarded = append(f.onboarded, id)
	return nil
}

type fakeProfiles map[string]*models.ResonanceProfile

func (f fakeProfiles) Get(ctx context.Context, id string) (*models.ResonanceProfile, error) {
	p, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}
	return p, nil
}

func (f fakeProfiles) GetBatch(ctx context.Context, ids []string) (map[string]*models.ResonanceProfile, error) {
	return nil, nil
}
func (f fakeProfiles) Upsert(ctx context.Context, p *models.ResonanceProfile) error { return nil }
func (f fakeProfiles) Delete(ctx context.Context, id string) error                  { return nil }

type fakeEvents struct {
	inserted []models.BehavioralEvent
	err      error
}

func (f *fakeEvents) InsertBatch(ctx context.Context, events []models.BehavioralEvent) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, events...)
	return len(events), nil
}

func (f *fakeEvents) Latest(ctx context.Context, userID string, t models.EventType) (*models.BehavioralEvent, error) {
	return nil, models.ErrNotFound
}

func (f *fakeEvents) ListByTypes(ctx context.Context, userID string, types []models.EventType, limit int) ([]models.BehavioralEvent, error) {
	return nil, nil
}

func (f *fakeEvents) CountByType(ctx context.Context, userID string, t models.EventType) (int, error) {
	return 0, nil
}

func newTestService() (*Service, *fakeUsers, fakeProfiles, *fakeEvents) {
	users := &fakeUsers{users: map[string]*models.User{
		"u1": {ID: "u1", DisplayName: strPtr("Sam")},
	}}
	arch := models.ArchetypeAnchor
	profiles := fakeProfiles{"u1": {UserID: "u1", Archetype: &arch}}
	events := &fakeEvents{}
	repo := &persistence.Repository{Users: users, Profiles: profiles, Events: events}
	return New(repo, nil), users, profiles, events
}

func TestGetMe(t *testing.T) {
	svc, users, _, _ := newTestService()

	me, err := svc.GetMe(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", me.User.ID)
	require.NotNil(t, me.Profile)
	assert.Equal(t, models.ArchetypeAnchor, *me.Profile.Archetype)

	users.users["u2"] = &models.User{ID: "u2"}
	me, err = svc.GetMe(context.Background(), "u2")
	require.NoError(t, err)
	assert.Nil(t, me.Profile, "unbuilt profile is simply absent")

	_, err = svc.GetMe(context.Background(), "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, users, _, _ := newTestService()

	longBio := make([]byte, 501)
	for i := range longBio {
		longBio[i] = 'x'
	}
	cases := []struct {
		name  string
		patch ProfilePatch
	}{
		{"display name too short", ProfilePatch{DisplayName: strPtr("A")}},
		{"display name too long", ProfilePatch{DisplayName: strPtr(string(make([]rune, 51)))}},
		{"bio too long", ProfilePatch{Bio: strPtr(string(longBio))}},
		{"pronouns too long", ProfilePatch{Pronouns: strPtr("they/them and then some more text")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.UpdateProfile(context.Background(), "u1", tc.patch)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	assert.Empty(t, users.patches, "validation failures reach no repository")
}

func TestUpdateProfileApplies(t *testing.T) {
	svc, users, _, _ := newTestService()

	err := svc.UpdateProfile(context.Background(), "u1", ProfilePatch{
		DisplayName: strPtr("Samira"),
		City:        strPtr("Berlin"),
	})
	require.NoError(t, err)
	require.Len(t, users.patches, 1)
	assert.Equal(t, "Samira", *users.patches[0].DisplayName)
	assert.Equal(t, "Berlin", *users.patches[0].City)
	assert.Nil(t, users.patches[0].Bio)
}

func TestCompleteOnboarding(t *testing.T) {
	svc, users, _, _ := newTestService()
	require.NoError(t, svc.CompleteOnboarding(context.Background(), "u1"))
	assert.Equal(t, []string{"u1"}, users.onboarded)
}

func TestTrackEvents(t *testing.T) {
	svc, _, _, events := newTestService()
	svc.now = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }

	clientTS := time.Date(2026, 8, 20, 11, 59, 30, 0, time.UTC)
	accepted, err := svc.TrackEvents(context.Background(), "u1", "sess-1", []TrackedEvent{
		{EventType: "app_opened", ClientTS: clientTS},
		{EventType: "custom_future_event", ClientTS: clientTS},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)

	require.Len(t, events.inserted, 2)
	first := events.inserted[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, "sess-1", first.SessionID)
	assert.Equal(t, clientTS, first.ClientTS)
	assert.Equal(t, svc.now(), first.ServerTS)
	assert.Equal(t, "custom_future_event", events.inserted[1].EventType, "unknown types are preserved")
}

func TestTrackEventsValidation(t *testing.T) {
	svc, _, _, events := newTestService()

	_, err := svc.TrackEvents(context.Background(), "u1", "", []TrackedEvent{{EventType: "app_opened"}})
	assert.ErrorIs(t, err, models.ErrValidation)

	oversized := make([]TrackedEvent, 101)
	for i := range oversized {
		oversized[i] = TrackedEvent{EventType: "app_opened"}
	}
	_, err = svc.TrackEvents(context.Background(), "u1", "sess-1", oversized)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.TrackEvents(context.Background(), "u1", "sess-1", []TrackedEvent{{}})
	assert.ErrorIs(t, err, models.ErrValidation)

	accepted, err := svc.TrackEvents(context.Background(), "u1", "sess-1", nil)
	require.NoError(t, err)
	assert.Zero(t, accepted)

	assert.Empty(t, events.inserted)
}

func TestInternalErrorsNeverLeak(t *testing.T) {
	svc, users, _, _ := newTestService()
	users.err = errors.New("pq: connection refused on 10.0.3.7")

	_, err := svc.GetMe(context.Background(), "u1")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "10.0.3.7")
	assert.Equal(t, errInternal, err)
}

func strPtr(s string) *string { return &s }
