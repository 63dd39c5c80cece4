// Package cache wraps Redis for three jobs: read-through caching of guide
// queries, the VOD publishing job queue, and the ingest batch lock.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds the shared client. The helpers in this package take it as the
// first argument rather than hanging methods off it, so the generic ones can
// stay generic.
type Redis struct {
	client *redis.Client
}

// New connects using a Redis URL such as "redis://host:6379/0". The
// connection is lazy; call Ping to verify it.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get fetches key and JSON-decodes it into T. ok is false on a miss; err is
// reserved for real transport or decode failures.
func Get[T any](ctx context.Context, r *Redis, key string) (v T, ok bool, err error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return v, true, nil
}

// Set JSON-encodes v under key with the given TTL.
func Set(ctx context.Context, r *Redis, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Del removes exact keys. Missing keys are not an error.
func Del(ctx context.Context, r *Redis, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// DelPattern removes every key matching a glob pattern ("programs:*"),
// walking the keyspace with SCAN so large databases are never blocked.
func DelPattern(ctx context.Context, r *Redis, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache del pattern %s: %w", pattern, err)
		}
		keys = keys[:0]
		return nil
	}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	return flush()
}
