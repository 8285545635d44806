package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

// cacheTTL bounds how long a cached record is trusted before Get falls
// through to the underlying store again.
const cacheTTL = 30 * time.Second

func cacheKey(id types.DocumentID) string {
	return "dd214pipeline:record:" + string(id)
}

// CachedStore wraps any Store with a Redis read-through cache on Get,
// to absorb read load from repeated status polling without adding a
// second source of truth: every write goes straight to the underlying
// Store and simply invalidates the cached entry rather than updating it
// in place, so a crashed writer can never leave a stale cache entry
// that looks newer than the record it shadows.
type CachedStore struct {
	Store
	redis *redis.Client
}

// NewCachedStore wraps store with a read-through cache backed by
// client. client is also the backing connection the Ingress Trigger's
// RedisLock dedup lock uses, per the single Redis dependency this
// deployment configures.
func NewCachedStore(store Store, client *redis.Client) *CachedStore {
	return &CachedStore{Store: store, redis: client}
}

// Get first checks the cache; on a miss or decode failure it falls
// through to the underlying Store and repopulates the cache.
func (c *CachedStore) Get(id types.DocumentID) (*types.DocumentRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if raw, err := c.redis.Get(ctx, cacheKey(id)).Bytes(); err == nil {
		var record types.DocumentRecord
		if jsonErr := json.Unmarshal(raw, &record); jsonErr == nil {
			return &record, nil
		}
	}

	record, err := c.Store.Get(id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(record); err == nil {
		if err := c.redis.Set(ctx, cacheKey(id), encoded, cacheTTL).Err(); err != nil {
			log.WithComponent("storage").Warn().Err(err).Msg("failed to populate record cache")
		}
	}
	return record, nil
}

// Update writes through to the underlying Store, then invalidates the
// cached entry so the next Get observes the new value rather than a
// stale copy surviving until cacheTTL expires.
func (c *CachedStore) Update(record *types.DocumentRecord, expectedUpdatedAt time.Time) error {
	if err := c.Store.Update(record, expectedUpdatedAt); err != nil {
		return err
	}
	c.invalidate(record.DocumentID)
	return nil
}

// Delete removes the record from the underlying Store and the cache.
func (c *CachedStore) Delete(id types.DocumentID) error {
	if err := c.Store.Delete(id); err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

func (c *CachedStore) invalidate(id types.DocumentID) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.redis.Del(ctx, cacheKey(id)).Err(); err != nil {
		log.WithComponent("storage").Warn().Err(err).Msg("failed to invalidate record cache")
	}
}
