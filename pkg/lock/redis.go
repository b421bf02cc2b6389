package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// RedisLocker serializes per-key work across processes using redsync
// mutexes, so sweeps and live requests running in separate deployments
// cannot race on the same subscription.
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
	tries  int
}

// RedisLockerOption configures a RedisLocker.
type RedisLockerOption func(*RedisLocker)

// WithPrefix namespaces lock keys in a shared Redis.
func WithPrefix(prefix string) RedisLockerOption {
	return func(l *RedisLocker) { l.prefix = prefix }
}

// WithExpiry bounds how long a crashed holder keeps the key locked.
func WithExpiry(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) { l.expiry = d }
}

// WithTries sets how many acquisition attempts are made before giving
// up. One try means "skip if busy", which is what sweep workers want.
func WithTries(n int) RedisLockerOption {
	return func(l *RedisLocker) { l.tries = n }
}

// NewRedisLocker returns a distributed locker on top of the given
// client. Panics if client is nil since there is no usable fallback.
func NewRedisLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	if client == nil {
		panic("lock: redis client is required")
	}
	l := &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: "subskit:lock:",
		expiry: 30 * time.Second,
		tries:  3,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes the distributed mutex for the key.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	mutex := l.rs.NewMutex(
		l.prefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, errors.Join(ErrNotAcquired, err)
	}
	return func() error {
		ok, err := mutex.Unlock()
		if err != nil {
			return errors.Join(ErrReleaseFailed, err)
		}
		if !ok {
			return ErrReleaseFailed
		}
		return nil
	}, nil
}
