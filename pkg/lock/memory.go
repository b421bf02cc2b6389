package lock

import (
	"context"
	"errors"
	"sync"
)

// memLock is a capacity-one channel semaphore with a reference count so
// idle keys can be dropped from the map.
type memLock struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker serializes per-key work inside a single process. It is
// the default locker for embedded deployments where the engine and its
// callers share one binary.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memLock
}

// NewMemoryLocker returns a ready-to-use in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*memLock)}
}

// Acquire blocks until the key's lock is held or ctx is done.
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &memLock{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() error {
			once.Do(func() {
				<-entry.ch
				l.release(key, entry)
			})
			return nil
		}, nil
	case <-ctx.Done():
		l.release(key, entry)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}
}

func (l *MemoryLocker) release(key string, entry *memLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
