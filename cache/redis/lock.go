package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Solsynth/DysonNetwork-sub002/cache"
	"github.com/Solsynth/DysonNetwork-sub002/errors"
)

// releaseScript deletes the lock key only when it still holds this
// owner's token, so an expired lease reacquired by someone else is never
// released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker implements cache.Locker on Redis, usable across multiple
// service instances.
type Locker struct {
	client *redis.Client
	prefix string
}

// NewLocker creates a Redis-backed locker. Keys are namespaced with the
// given prefix.
func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) redisKey(key string) string {
	return l.prefix + ":lock:" + key
}

type lockHandle struct {
	locker *Locker
	key    string
	token  string
	once   sync.Once
}

// Release implements cache.LockHandle.Release. It is idempotent.
func (h *lockHandle) Release(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		err = releaseScript.Run(ctx, h.locker.client, []string{h.key}, h.token).Err()
		if err == redis.Nil {
			err = nil
		}
	})
	return err
}

// Acquire implements cache.Locker.Acquire with SET NX and a lease TTL,
// retrying until acquireTimeout elapses.
func (l *Locker) Acquire(ctx context.Context, key string, leaseTTL, acquireTimeout time.Duration) (cache.LockHandle, error) {
	redisKey := l.redisKey(key)
	token := uuid.NewString()
	deadline := time.Now().Add(acquireTimeout)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, leaseTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &lockHandle{locker: l, key: redisKey, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, errors.ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
