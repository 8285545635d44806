package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

func newTestCachedStore(t *testing.T) (*CachedStore, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	require.NoError(t, err, "miniredis.Run()")
	t.Cleanup(srv.Close)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	underlying, err := NewBoltStore(t.TempDir())
	require.NoError(t, err, "NewBoltStore()")
	t.Cleanup(func() { underlying.Close() })

	return NewCachedStore(underlying, client), srv
}

func sampleRecord(id types.DocumentID) *types.DocumentRecord {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &types.DocumentRecord{
		DocumentID: id,
		OwnerID:    "owner-1",
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     types.StatusPendingUpload,
		Steps:      map[types.StepName]types.StepRecord{},
		TTL:        now.Add(90 * 24 * time.Hour),
	}
}

func TestCachedStoreGetPopulatesCacheOnMiss(t *testing.T) {
	cached, srv := newTestCachedStore(t)
	record := sampleRecord("doc-1")
	require.NoError(t, cached.Create(record))

	_, err := srv.Get(cacheKey(record.DocumentID))
	assert.Error(t, err, "cache should be empty before the first Get")

	got, err := cached.Get(record.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, record.DocumentID, got.DocumentID)

	raw, err := srv.Get(cacheKey(record.DocumentID))
	require.NoError(t, err, "Get should have populated the cache entry")
	assert.Contains(t, raw, string(record.DocumentID))
}

func TestCachedStoreGetServesFromCacheWithoutTouchingStore(t *testing.T) {
	cached, srv := newTestCachedStore(t)
	record := sampleRecord("doc-2")
	require.NoError(t, cached.Create(record))

	_, err := cached.Get(record.DocumentID)
	require.NoError(t, err)

	if err := underlyingStoreOf(t, cached).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := cached.Get(record.DocumentID)
	require.NoError(t, err, "a cache hit must not touch the closed underlying store")
	assert.Equal(t, record.OwnerID, got.OwnerID)

	srv.FastForward(cacheTTL + time.Second)
	_, err = srv.Get(cacheKey(record.DocumentID))
	assert.Error(t, err, "entry should have expired after the TTL elapses")
}

func underlyingStoreOf(t *testing.T, c *CachedStore) Store {
	t.Helper()
	return c.Store
}

func TestCachedStoreUpdateInvalidatesCache(t *testing.T) {
	cached, srv := newTestCachedStore(t)
	record := sampleRecord("doc-3")
	require.NoError(t, cached.Create(record))

	first, err := cached.Get(record.DocumentID)
	require.NoError(t, err)

	_, err = srv.Get(cacheKey(record.DocumentID))
	require.NoError(t, err, "expected a populated cache entry before the update")

	updated := *first
	updated.OwnerID = "owner-2"
	updated.UpdatedAt = first.UpdatedAt.Add(time.Minute)
	require.NoError(t, cached.Update(&updated, first.UpdatedAt))

	_, err = srv.Get(cacheKey(record.DocumentID))
	assert.Error(t, err, "Update should have invalidated the cache entry")

	got, err := cached.Get(record.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "owner-2", got.OwnerID)
}

func TestCachedStoreDeleteInvalidatesCache(t *testing.T) {
	cached, srv := newTestCachedStore(t)
	record := sampleRecord("doc-4")
	require.NoError(t, cached.Create(record))

	_, err := cached.Get(record.DocumentID)
	require.NoError(t, err)

	require.NoError(t, cached.Delete(record.DocumentID))

	_, err = srv.Get(cacheKey(record.DocumentID))
	assert.Error(t, err, "Delete should have invalidated the cache entry")

	_, err = cached.Get(record.DocumentID)
	assert.ErrorIs(t, err, ErrNotFound)
}
