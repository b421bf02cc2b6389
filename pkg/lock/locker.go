package lock

import "context"

// Release frees a held lock. Safe to call from a defer; returns an
// error when the lock was lost before release (e.g. expiry).
type Release func() error

// Locker serializes work on a string key. Implementations cover a
// single process (MemoryLocker) or a fleet of them (RedisLocker).
type Locker interface {
	// Acquire blocks until the key's lock is held, the attempt budget
	// is exhausted, or ctx is done.
	Acquire(ctx context.Context, key string) (Release, error)
}
