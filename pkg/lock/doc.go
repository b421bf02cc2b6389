// Package lock provides per-key mutual exclusion for the subscription
// engine's check-then-write sequences: usage consumption, subscription
// creation, and sweep-vs-live-request races.
//
// Two implementations share the Locker interface:
//
//	locker := lock.NewMemoryLocker() // single process
//
//	locker := lock.NewRedisLocker(client,
//	    lock.WithExpiry(30*time.Second),
//	    lock.WithTries(1), // skip if another worker holds it
//	)
//
// Usage:
//
//	release, err := locker.Acquire(ctx, "consume:"+subID.String())
//	if err != nil {
//	    return err
//	}
//	defer release()
package lock
