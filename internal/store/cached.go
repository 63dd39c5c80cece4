package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"time"

	"github.com/guidevault/guidevault/internal/cache"
	"github.com/guidevault/guidevault/internal/models"
)

// Cache TTLs for different entity types. Guide windows are re-queried on
// every page load, so program lists get the longest TTL the overnight ingest
// cadence allows.
const (
	ttlChannels   = 2 * time.Minute
	ttlChannel    = 5 * time.Minute
	ttlCategories = 10 * time.Minute
	ttlPrograms   = 2 * time.Minute
)

// CachedStore wraps a Store with a Redis caching layer.
// Read-heavy guide operations are served from cache when possible;
// write operations invalidate the relevant cache keys.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

// --- cached read operations ---

func (c *CachedStore) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error) {
	key := fmt.Sprintf("channels:%s", channelFilterHash(filter))
	if v, ok, _ := cache.Get[[]models.Channel](ctx, c.cache, key); ok {
		return v, nil
	}
	channels, err := c.inner.ListChannels(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, channels, ttlChannels); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return channels, nil
}

func (c *CachedStore) GetChannelByID(ctx context.Context, channelID int64) (*models.Channel, error) {
	key := fmt.Sprintf("channel:%d", channelID)
	if v, ok, _ := cache.Get[models.Channel](ctx, c.cache, key); ok {
		return &v, nil
	}
	ch, err := c.inner.GetChannelByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, ch, ttlChannel); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return ch, nil
}

func (c *CachedStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	const key = "categories:all"
	if v, ok, _ := cache.Get[[]models.Category](ctx, c.cache, key); ok {
		return v, nil
	}
	categories, err := c.inner.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, categories, ttlCategories); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return categories, nil
}

func (c *CachedStore) ListPrograms(ctx context.Context, filter ProgramFilter) ([]models.Program, error) {
	key := fmt.Sprintf("programs:%s", programFilterHash(filter))
	if v, ok, _ := cache.Get[[]models.Program](ctx, c.cache, key); ok {
		return v, nil
	}
	programs, err := c.inner.ListPrograms(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, programs, ttlPrograms); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return programs, nil
}

// --- write operations with cache invalidation ---

func (c *CachedStore) UpsertChannel(ctx context.Context, ch *models.Channel) (int64, error) {
	id, err := c.inner.UpsertChannel(ctx, ch)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx, fmt.Sprintf("channel:%d", id))
	c.invalidatePattern(ctx, "channels:*")
	return id, nil
}

func (c *CachedStore) SetChannelArchived(ctx context.Context, channelID int64, archived bool) error {
	if err := c.inner.SetChannelArchived(ctx, channelID, archived); err != nil {
		return err
	}
	c.invalidate(ctx, fmt.Sprintf("channel:%d", channelID))
	c.invalidatePattern(ctx, "channels:*")
	return nil
}

func (c *CachedStore) UpdateChannelPlayback(ctx context.Context, channelID int64, url string, settings models.ChannelSettings) error {
	if err := c.inner.UpdateChannelPlayback(ctx, channelID, url, settings); err != nil {
		return err
	}
	c.invalidate(ctx, fmt.Sprintf("channel:%d", channelID))
	c.invalidatePattern(ctx, "channels:*")
	return nil
}

func (c *CachedStore) GetOrCreateCategory(ctx context.Context, title string) (int64, error) {
	id, err := c.inner.GetOrCreateCategory(ctx, title)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx, "categories:all")
	return id, nil
}

func (c *CachedStore) UpsertPrograms(ctx context.Context, programs []*models.Program) error {
	if err := c.inner.UpsertPrograms(ctx, programs); err != nil {
		return err
	}
	c.invalidatePattern(ctx, "programs:*")
	return nil
}

func (c *CachedStore) UpsertArchivedProgram(ctx context.Context, ap *models.ArchivedProgram) (int64, error) {
	id, err := c.inner.UpsertArchivedProgram(ctx, ap)
	if err != nil {
		return 0, err
	}
	// Archival records ride along on cached program rows.
	c.invalidatePattern(ctx, "programs:*")
	return id, nil
}

// --- passthrough (no caching) ---

func (c *CachedStore) GetProgramByID(ctx context.Context, programID int64) (*models.Program, error) {
	return c.inner.GetProgramByID(ctx, programID)
}

func (c *CachedStore) GetArchivedProgram(ctx context.Context, programID int64) (*models.ArchivedProgram, error) {
	return c.inner.GetArchivedProgram(ctx, programID)
}

func (c *CachedStore) ListArchivedPrograms(ctx context.Context, activeOnly bool) ([]models.ArchivedProgram, error) {
	return c.inner.ListArchivedPrograms(ctx, activeOnly)
}

// --- helpers ---

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil {
		log.Printf("cache: del %v: %v", keys, err)
	}
}

// invalidatePattern deletes all keys matching the given glob patterns.
func (c *CachedStore) invalidatePattern(ctx context.Context, patterns ...string) {
	for _, p := range patterns {
		if err := cache.DelPattern(ctx, c.cache, p); err != nil {
			log.Printf("cache: del pattern %s: %v", p, err)
		}
	}
}

// channelFilterHash produces a short deterministic hash for a ChannelFilter
// so it can be used as part of a cache key.
func channelFilterHash(f ChannelFilter) string {
	archived := "nil"
	if f.Archived != nil {
		archived = fmt.Sprintf("%t", *f.Archived)
	}
	raw := fmt.Sprintf("%s|%s|%v", f.Provider, archived, f.IDs)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}

// programFilterHash produces a short deterministic hash for a ProgramFilter.
func programFilterHash(f ProgramFilter) string {
	channel := "nil"
	if f.ChannelID != nil {
		channel = fmt.Sprintf("%d", *f.ChannelID)
	}
	raw := fmt.Sprintf("%d|%d|%s|%s|%v",
		f.From.Unix(), f.To.Unix(), channel, f.Provider, f.CategoryIDs)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}
