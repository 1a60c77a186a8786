// Package locker provides the per-order execution lock. The broker gives no
// exactly-once guarantee, so two workers may receive the same command; the
// lock keeps them from calling the exchange concurrently for one order id.
// The event store's unique constraint is the durable backstop.
package locker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix  = "orders:execution_lock:"
	defaultLockTTL = 30 * time.Second
)

type OrderLocker interface {
	// Acquire returns false when another worker already holds the lock.
	Acquire(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string) error
}

type RedisOrderLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOrderLocker(client *redis.Client) *RedisOrderLocker {
	return &RedisOrderLocker{
		client: client,
		ttl:    defaultLockTTL,
	}
}

func (l *RedisOrderLocker) Acquire(ctx context.Context, orderID string) (bool, error) {
	return l.client.SetNX(ctx, lockKeyPrefix+orderID, "1", l.ttl).Result()
}

func (l *RedisOrderLocker) Release(ctx context.Context, orderID string) error {
	return l.client.Del(ctx, lockKeyPrefix+orderID).Err()
}

// MemoryOrderLocker is a process-local OrderLocker for tests and single
// worker deployments.
type MemoryOrderLocker struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

func NewMemoryOrderLocker() *MemoryOrderLocker {
	return &MemoryOrderLocker{locks: make(map[string]struct{})}
}

func (l *MemoryOrderLocker) Acquire(_ context.Context, orderID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.locks[orderID]; held {
		return false, nil
	}

	l.locks[orderID] = struct{}{}
	return true, nil
}

func (l *MemoryOrderLocker) Release(_ context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, orderID)
	return nil
}
