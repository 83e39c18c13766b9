package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Solsynth/DysonNetwork-sub002/errors"
)

// LockHandle is a held advisory lock. Release is idempotent and always
// safe to call, on every exit path.
type LockHandle interface {
	Release(ctx context.Context) error
}

// Locker grants short-lived mutual-exclusion leases keyed by string.
// Acquire blocks up to acquireTimeout for the lease; a crashed holder is
// released by the lease TTL, never held forever.
type Locker interface {
	Acquire(ctx context.Context, key string, leaseTTL, acquireTimeout time.Duration) (LockHandle, error)
}

// MemoryLocker is an in-process Locker for single-instance deployments
// and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	clock func() time.Time
}

type memoryLease struct {
	owner  string
	expiry time.Time
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]memoryLease),
		clock: time.Now,
	}
}

type memoryLockHandle struct {
	locker *MemoryLocker
	key    string
	owner  string
	once   sync.Once
}

// Release frees the lease only while this handle still owns it. A handle
// whose lease expired and was reacquired by another caller must not free
// the current holder's lock.
func (h *memoryLockHandle) Release(_ context.Context) error {
	h.once.Do(func() {
		h.locker.mu.Lock()
		defer h.locker.mu.Unlock()
		if lease, ok := h.locker.held[h.key]; ok && lease.owner == h.owner {
			delete(h.locker.held, h.key)
		}
	})
	return nil
}

func (l *MemoryLocker) tryAcquire(key, owner string, leaseTTL time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if lease, ok := l.held[key]; ok && now.Before(lease.expiry) {
		return false
	}
	l.held[key] = memoryLease{owner: owner, expiry: now.Add(leaseTTL)}
	return true
}

// Acquire implements Locker.Acquire by polling with a short backoff.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, leaseTTL, acquireTimeout time.Duration) (LockHandle, error) {
	owner := uuid.NewString()
	deadline := l.clock().Add(acquireTimeout)
	for {
		if l.tryAcquire(key, owner, leaseTTL) {
			return &memoryLockHandle{locker: l, key: key, owner: owner}, nil
		}
		if !l.clock().Before(deadline) {
			return nil, errors.ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}
