package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client), mr
}

func TestRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Score int    `json:"score"`
		Note  string `json:"note"`
	}
	in := payload{Score: 87, Note: "resonant"}
	require.NoError(t, c.Set(ctx, "ers:a:b:score", in, time.Minute))

	var out payload
	require.NoError(t, c.Get(ctx, "ers:a:b:score", &out))
	assert.Equal(t, in, out)
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var out string
	err := c.Get(context.Background(), "user:nobody:feed_ranked", &out)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestTTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user:u1:profile", "cached", 90*time.Second))
	mr.FastForward(2 * time.Minute)

	var out string
	assert.ErrorIs(t, c.Get(ctx, "user:u1:profile", &out), ErrMiss)
}

func TestScanDeleteMatchesExactly(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user:u1:feed_ranked", 1, 0))
	require.NoError(t, c.Set(ctx, "user:u1:feed_page_0", 2, 0))
	require.NoError(t, c.Set(ctx, "user:u2:feed_ranked", 3, 0))

	deleted, err := c.ScanDelete(ctx, UserPattern("u1"))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	var out int
	assert.ErrorIs(t, c.Get(ctx, "user:u1:feed_ranked", &out), ErrMiss)
	assert.NoError(t, c.Get(ctx, "user:u2:feed_ranked", &out))
	assert.Equal(t, 3, out)
}

func TestScanDeleteDropsPairScoresForUser(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, ERSKey("u1", "u2"), 80, time.Hour))
	require.NoError(t, c.Set(ctx, ERSKey("u0", "u1"), 70, time.Hour))
	require.NoError(t, c.Set(ctx, ERSKey("u2", "u3"), 60, time.Hour))
	require.NoError(t, c.Set(ctx, FeedRankedKey("u1"), 1, time.Minute))

	deleted := 0
	for _, pattern := range ERSPatterns("u1") {
		n, err := c.ScanDelete(ctx, pattern)
		require.NoError(t, err)
		deleted += n
	}
	assert.Equal(t, 2, deleted)

	var out int
	assert.ErrorIs(t, c.Get(ctx, ERSKey("u1", "u2"), &out), ErrMiss)
	assert.ErrorIs(t, c.Get(ctx, ERSKey("u0", "u1"), &out), ErrMiss)
	assert.NoError(t, c.Get(ctx, ERSKey("u2", "u3"), &out), "other pairs untouched")
	assert.NoError(t, c.Get(ctx, FeedRankedKey("u1"), &out), "feed keys have their own pattern")
}

func TestCloseReleasesPool(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}

func TestSetMembership(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SAdd(ctx, BlocksKey("u1"), "u9", "u10"))

	ok, err := c.SIsMember(ctx, BlocksKey("u1"), "u9")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SIsMember(ctx, BlocksKey("u1"), "u11")
	require.NoError(t, err)
	assert.False(t, ok)

	members, err := c.SMembers(ctx, BlocksKey("u1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u9", "u10"}, members)
}

func TestKeyConvention(t *testing.T) {
	assert.Equal(t, "ers:a:b:score", ERSKey("b", "a"))
	assert.Equal(t, "user:u1:feed_page_2", FeedPageKey("u1", "2"))
	assert.Equal(t, "user:u1:*", UserPattern("u1"))
	assert.Equal(t, []string{"ers:u1:*", "ers:*:u1:score"}, ERSPatterns("u1"))
}
