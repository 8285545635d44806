package ingress

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// executionLockTTL bounds how long a deterministic execution name stays
// claimed. Long enough to cover the time between the Ingress Trigger
// seeing the event and the orchestrator goroutine actually starting,
// short enough that a crashed trigger doesn't wedge future retries.
const executionLockTTL = 5 * time.Minute

// DedupLock gives a deterministic execution name exactly-once start
// semantics. TryAcquire reports whether the caller won the lock; a
// losing caller must treat the event as already_exists rather than
// starting a second execution.
type DedupLock interface {
	TryAcquire(ctx context.Context, executionName string) (bool, error)
}

// RedisLock implements DedupLock with go-redis's SetNX, letting multiple
// Ingress Trigger processes behind the same Redis instance coordinate
// exactly-once starts.
type RedisLock struct {
	client *redis.Client
}

// NewRedisLock wraps an already-configured go-redis client.
func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) TryAcquire(ctx context.Context, executionName string) (bool, error) {
	return l.client.SetNX(ctx, lockKey(executionName), 1, executionLockTTL).Result()
}

func lockKey(executionName string) string {
	return "dd214pipeline:execution-lock:" + executionName
}

// InProcessLock is the DedupLock used when no Redis address is
// configured: a single-process deployment still needs exactly-once
// semantics against duplicate blob-create events arriving in the same
// process, guarded by a plain mutex-protected map.
type InProcessLock struct {
	mu      sync.Mutex
	claimed map[string]time.Time
}

// NewInProcessLock builds an empty in-memory lock table.
func NewInProcessLock() *InProcessLock {
	return &InProcessLock{claimed: make(map[string]time.Time)}
}

func (l *InProcessLock) TryAcquire(ctx context.Context, executionName string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiry, ok := l.claimed[executionName]; ok && now.Before(expiry) {
		return false, nil
	}
	l.claimed[executionName] = now.Add(executionLockTTL)
	return true, nil
}
