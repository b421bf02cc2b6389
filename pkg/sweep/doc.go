// Package sweep runs the batch maintenance passes of the subscription
// service: expiring overdue subscriptions, renewing auto-renewing ones,
// and zeroing stale usage counters.
//
// A Runner executes one pass at a time. Items are processed
// independently: a failure on one subscription is logged, counted, and
// the pass moves on. Every item is re-read right before it is touched
// because the row may have moved on since the scan, e.g. a subscriber
// renewing manually while the sweep is running.
//
// Usage:
//
//	runner := sweep.NewRunner(svc, store)
//
//	res, err := runner.ExpireOverdue(ctx, sweep.Options{Limit: 500})
//	if err != nil {
//		return err
//	}
//	log.Printf("expired %d of %d", res.Processed, res.Scanned)
//
// The Scheduler executes registered sweeps on a cadence until its
// context is canceled:
//
//	sched := sweep.NewScheduler()
//	_ = sched.Add("expire", sweep.Every(time.Hour), func(ctx context.Context) (sweep.Result, error) {
//		return runner.ExpireOverdue(ctx, sweep.Options{})
//	})
//	_ = sched.Add("daily-usage-reset", sweep.DailyAt(0, 15), func(ctx context.Context) (sweep.Result, error) {
//		return runner.ResetDueUsage(ctx, plan.ResetDaily, sweep.Options{})
//	})
//	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
//		return err
//	}
package sweep
