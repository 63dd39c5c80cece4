package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IngestLock is the lock key guarding the scheduled ingest batch. A second
// batch started while one is running would double the request rate against
// the upstream host.
const IngestLock = "guidevault:lock:ingest"

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

// unlockScript releases a lock only when the stored token still matches,
// so an expired-and-reacquired lock is never released by the old holder.
var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// TryLock acquires the distributed lock named by key via SET NX with a TTL.
// On success the returned unlock func must be called (usually deferred); the
// TTL is the upper bound on how long a crashed holder keeps the lock. When
// another holder has the lock, ErrLocked is returned.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	token := hex.EncodeToString(buf)

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Background context so the release happens even when the caller's
		// context is already cancelled.
		_ = unlockScript.Run(context.Background(), r.client, []string{key}, token).Err()
	}, nil
}

// IsLocked reports whether the lock key currently exists.
func IsLocked(ctx context.Context, r *Redis, key string) bool {
	n, _ := r.client.Exists(ctx, key).Result()
	return n > 0
}
