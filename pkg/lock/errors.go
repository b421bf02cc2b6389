package lock

import "errors"

var (
	ErrNotAcquired   = errors.New("lock.errors.not_acquired")
	ErrReleaseFailed = errors.New("lock.errors.release_failed")
)
