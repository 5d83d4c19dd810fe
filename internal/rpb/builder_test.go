package rpb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/infrastructure/vector"
	"github.com/resonatelabs/resonate/internal/infrastructure/llm"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) Get(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUsers) GetBatch(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := map[string]*models.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeUsers) ListActive(ctx context.Context, since time.Time, limit int) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.LastActiveAt.After(since) && u.DeletedAt == nil && u.OnboardingCompleted {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) UpdatePatch(ctx context.Context, id string, patch persistence.UserPatch) error {
	return nil
}

func (f *fakeUsers) CompleteOnboarding(ctx context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.OnboardingCompleted = true
	return nil
}

type fakeProfiles struct {
	profiles map[string]*models.ResonanceProfile
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*models.ResonanceProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
	}
	return p, nil
}

func (f *fakeProfiles) GetBatch(ctx context.Context, userIDs []string) (map[string]*models.ResonanceProfile, error) {
	out := map[string]*models.ResonanceProfile{}
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) Upsert(ctx context.Context, p *models.ResonanceProfile) error {
	if f.profiles == nil {
		f.profiles = map[string]*models.ResonanceProfile{}
	}
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeProfiles) Delete(ctx context.Context, userID string) error {
	delete(f.profiles, userID)
	return nil
}

type fakeCache struct {
	deletedPatterns []string
}

func (f *fakeCache) Get(ctx context.Context, key string, out interface{}) error {
	return errors.New("miss")
}
func (f *fakeCache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) Delete(ctx context.Context, key string) error { return nil }
func (f *fakeCache) ScanDelete(ctx context.Context, pattern string) (int, error) {
	f.deletedPatterns = append(f.deletedPatterns, pattern)
	return 0, nil
}
func (f *fakeCache) SAdd(ctx context.Context, key string, members ...string) error { return nil }
func (f *fakeCache) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return false, nil
}
func (f *fakeCache) SMembers(ctx context.Context, key string) ([]string, error) { return nil, nil }
func (f *fakeCache) Ping(ctx context.Context) error                             { return nil }

type fakeIndex struct {
	upserts map[string][]float32
	meta    map[string]map[string]interface{}
	deleted []string
	failing bool
}

func (f *fakeIndex) Upsert(ctx context.Context, id string, values []float32, metadata map[string]interface{}) error {
	if f.failing {
		return fmt.Errorf("index down: %w", models.ErrUpstream)
	}
	if f.upserts == nil {
		f.upserts = map[string][]float32{}
		f.meta = map[string]map[string]interface{}{}
	}
	f.upserts[id] = values
	f.meta[id] = metadata
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, values []float32, topK int, filter vector.Filter) ([]vector.Match, error) {
	return nil, nil
}

func (f *fakeIndex) Fetch(ctx context.Context, id string) ([]float32, error) {
	return f.upserts[id], nil
}

func (f *fakeIndex) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.upserts, id)
	return nil
}

type fakeEmbedder struct {
	failing bool
	prompts []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, llm.Usage, error) {
	f.prompts = append(f.prompts, text)
	if f.failing {
		return nil, llm.Usage{}, fmt.Errorf("embedding offline: %w", models.ErrUpstream)
	}
	return make([]float32, vector.Dimensions), llm.Usage{PromptTokens: 40}, nil
}

func testBuilder(users *fakeUsers, profiles *fakeProfiles) (*Builder, *fakeCache, *fakeIndex, *fakeEmbedder) {
	c := &fakeCache{}
	idx := &fakeIndex{}
	emb := &fakeEmbedder{}
	repo := &persistence.Repository{
		Users:    users,
		Profiles: profiles,
		Events:   &fakeEvents{},
		Messages: &fakeMessages{bySender: map[string][]models.Message{}},
	}
	cfg := config.Default().Rebuild
	return NewBuilder(repo, c, idx, emb, cfg), c, idx, emb
}

func activeUser(id string) *models.User {
	bio := "Collector of sunsets and obscure synthesizers, always chasing the next small adventure"
	return &models.User{
		ID:                  id,
		Bio:                 &bio,
		SubscriptionTier:    models.TierFree,
		OnboardingCompleted: true,
		LastActiveAt:        time.Now().UTC(),
	}
}

func TestRebuildCommitsProfileAndVector(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{"u1": activeUser("u1")}}
	profiles := &fakeProfiles{}
	b, c, idx, _ := testBuilder(users, profiles)

	p, err := b.Rebuild(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, p.EmbeddingGenerated)
	assert.NotNil(t, profiles.profiles["u1"])
	assert.Len(t, idx.upserts["u1"], vector.Dimensions)
	assert.Equal(t, "u1", idx.meta["u1"]["userId"])
	assert.Contains(t, c.deletedPatterns, "user:u1:*")
	assert.Contains(t, c.deletedPatterns, "ers:u1:*")
	assert.Contains(t, c.deletedPatterns, "ers:*:u1:score")
}

func TestRebuildEmbeddingFailureCommitsPartial(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{"u1": activeUser("u1")}}
	profiles := &fakeProfiles{}
	b, _, idx, emb := testBuilder(users, profiles)
	emb.failing = true

	p, err := b.Rebuild(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, p.EmbeddingGenerated)
	assert.Empty(t, idx.upserts)
	require.NotNil(t, profiles.profiles["u1"])
	assert.NotNil(t, profiles.profiles["u1"].Archetype)
}

func TestRebuildUnknownUser(t *testing.T) {
	b, _, _, _ := testBuilder(&fakeUsers{users: map[string]*models.User{}}, &fakeProfiles{})
	_, err := b.Rebuild(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRebuildAllSkipsFreshProfiles(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		"fresh": activeUser("fresh"),
		"stale": activeUser("stale"),
	}}
	profiles := &fakeProfiles{profiles: map[string]*models.ResonanceProfile{
		"fresh": {UserID: "fresh", RecalculatedAt: time.Now().UTC().Add(-1 * time.Hour)},
		"stale": {UserID: "stale", RecalculatedAt: time.Now().UTC().Add(-72 * time.Hour)},
	}}
	b, _, _, _ := testBuilder(users, profiles)

	summary, err := b.RebuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Rebuilt)
	assert.Zero(t, summary.Failed)
}

func TestDeleteUserDataCascade(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{"u1": activeUser("u1")}}
	profiles := &fakeProfiles{profiles: map[string]*models.ResonanceProfile{"u1": {UserID: "u1"}}}
	b, c, idx, _ := testBuilder(users, profiles)

	require.NoError(t, b.DeleteUserData(context.Background(), "u1"))
	assert.Contains(t, idx.deleted, "u1")
	assert.Empty(t, profiles.profiles)
	assert.Contains(t, c.deletedPatterns, "user:u1:*")
	assert.Contains(t, c.deletedPatterns, "ers:u1:*")
	assert.Contains(t, c.deletedPatterns, "ers:*:u1:score")
}
