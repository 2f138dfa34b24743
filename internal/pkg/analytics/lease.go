package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docmill/docmill/internal/pkg/cache"
)

// ErrLeaseHeld is returned to a scheduler instance that lost the race for a
// date. It is an expected outcome under concurrent schedulers, not a failure.
var ErrLeaseHeld = errors.New("aggregation lease already held")

// Lease is a time-bounded exclusivity token keyed by date, so overlapping
// scheduler instances never aggregate the same day twice at once. The ttl
// guarantees a crashed holder cannot block future runs forever.
type Lease interface {
	Acquire(ctx context.Context, date string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, date string)
}

const leaseKeyPrefix = "analytics:rollup:lease:"

// RedisLease implements Lease on a shared Redis instance, so the guarantee
// holds across processes.
type RedisLease struct{}

func NewRedisLease() *RedisLease {
	return &RedisLease{}
}

func (l *RedisLease) Acquire(ctx context.Context, date string, ttl time.Duration) (bool, error) {
	return cache.SetNX(leaseKeyPrefix+date, "1", ttl)
}

func (l *RedisLease) Release(ctx context.Context, date string) {
	_ = cache.Delete(leaseKeyPrefix + date)
}

// MemoryLease implements Lease inside one process. It backs tests and
// single-instance deployments without Redis.
type MemoryLease struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemoryLease() *MemoryLease {
	return &MemoryLease{
		held:  make(map[string]time.Time),
		clock: time.Now,
	}
}

func (l *MemoryLease) Acquire(ctx context.Context, date string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if until, ok := l.held[date]; ok && until.After(now) {
		return false, nil
	}
	l.held[date] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLease) Release(ctx context.Context, date string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, date)
}
