// Package cache is the typed Redis adapter for transient derived artifacts:
// ERS results, ranked feeds, feed pages and safety sets. Values are JSON.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is the key/value + set API consumed by the core.
type Cache interface {
	Get(ctx context.Context, key string, out interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// ScanDelete removes every key matching the glob pattern, iteratively.
	ScanDelete(ctx context.Context, pattern string) (int, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	Ping(ctx context.Context) error
}

// RedisCache implements Cache on go-redis with a namespace prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// New connects a RedisCache with pooled connections and bounded timeouts.
func New(opts Options) *RedisCache {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,

		PoolSize:     opts.PoolSize,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})
	return &RedisCache{client: client, prefix: Namespace + ":"}
}

// NewWithClient wraps an existing client; tests use this with miniredis.
func NewWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: Namespace + ":"}
}

func (c *RedisCache) Get(ctx context.Context, key string, out interface{}) error {
	raw, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s: %w", key, ErrMiss)
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Set stores value under key. ttl of 0 means no expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// ScanDelete walks the keyspace with SCAN so large invalidations never block
// the server, deleting matches in batches.
func (c *RedisCache) ScanDelete(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	full := c.prefix + pattern
	for {
		keys, next, err := c.client.Scan(ctx, cursor, full, 200).Result()
		if err != nil {
			return deleted, fmt.Errorf("cache scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("cache scan-delete %s: %w", pattern, err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func (c *RedisCache) SAdd(ctx context.Context, key string, members ...string) error {
	vals := make([]interface{}, len(members))
	for i, m := range members {
		vals[i] = m
	}
	if err := c.client.SAdd(ctx, c.prefix+key, vals...).Err(); err != nil {
		return fmt.Errorf("cache sadd %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := c.client.SIsMember(ctx, c.prefix+key, member).Result()
	if err != nil {
		return false, fmt.Errorf("cache sismember %s: %w", key, err)
	}
	return ok, nil
}

func (c *RedisCache) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.client.SMembers(ctx, c.prefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache smembers %s: %w", key, err)
	}
	return members, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
