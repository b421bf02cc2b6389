package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/subskit/pkg/lifecycle"
	"github.com/dmitrymomot/subskit/pkg/logger"
	"github.com/dmitrymomot/subskit/pkg/metering"
	"github.com/dmitrymomot/subskit/pkg/plan"
	"github.com/dmitrymomot/subskit/pkg/subscription"
)

// Options configures a single sweep pass.
type Options struct {
	// DryRun scans and logs candidates without mutating anything.
	DryRun bool
	// Limit caps the number of scanned items; <= 0 means no cap.
	Limit int
}

// Result summarizes one sweep pass. Scanned counts the candidates the
// query returned; Skipped the rows that moved on between scan and
// processing; Failed the rows whose mutation errored, with the causes
// collected in Errors. In dry-run mode only Scanned is filled.
type Result struct {
	Sweep     string
	Scanned   int
	Processed int
	Skipped   int
	Failed    int
	Errors    []error
}

// Runner executes the batch maintenance passes. Mutations go through
// the Service so the usual transition rules apply and events fire;
// scans go straight to the Store.
type Runner struct {
	svc   subscription.Service
	store subscription.Store
	now   func() time.Time
	log   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRunner creates a sweep runner. Both the service and the store are
// required; it panics on nil to fail fast during initialization.
func NewRunner(svc subscription.Service, store subscription.Store, opts ...RunnerOption) *Runner {
	if svc == nil {
		panic("sweep: service is required")
	}
	if store == nil {
		panic("sweep: store is required")
	}

	r := &Runner{
		svc:   svc,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExpireOverdue expires every active-family subscription whose grace
// deadline has passed. Rows renewed or canceled since the scan are
// skipped.
func (r *Runner) ExpireOverdue(ctx context.Context, opts Options) (Result, error) {
	res := Result{Sweep: "expire_overdue"}
	now := r.now()

	due, err := r.store.DueForExpiry(ctx, now, opts.Limit)
	if err != nil {
		return res, errors.Join(ErrScanFailed, err)
	}
	res.Scanned = len(due)

	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if opts.DryRun {
			r.log.InfoContext(ctx, "would expire subscription",
				logger.Sweep(res.Sweep), logger.SubscriptionID(sub.ID), logger.SubscriberRef(sub.Subscriber))
			continue
		}

		// The scan ran without a lock, so the row is re-read before the
		// transition fires.
		fresh, err := r.svc.GetSubscription(ctx, sub.ID)
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			res.Skipped++
			continue
		} else if err != nil {
			r.fail(ctx, &res, sub.ID, fmt.Errorf("reload %s: %w", sub.ID, err))
			continue
		}
		if !fresh.Status.InActiveFamily() || fresh.HasValidPeriod(now) {
			res.Skipped++
			continue
		}

		if _, err := r.svc.Expire(ctx, fresh.ID); err != nil {
			if errors.Is(err, subscription.ErrInvalidSubscriptionState) {
				res.Skipped++
				continue
			}
			r.fail(ctx, &res, fresh.ID, fmt.Errorf("expire %s: %w", fresh.ID, err))
			continue
		}
		res.Processed++
	}
	return r.finish(ctx, res, opts), nil
}

// AutoRenew renews every active subscription with auto-renewal on whose
// period has run out. Renewals are marked automatic so the emitted
// event distinguishes them from manual ones.
func (r *Runner) AutoRenew(ctx context.Context, opts Options) (Result, error) {
	res := Result{Sweep: "auto_renew"}
	now := r.now()

	due, err := r.store.DueForAutoRenewal(ctx, now, opts.Limit)
	if err != nil {
		return res, errors.Join(ErrScanFailed, err)
	}
	res.Scanned = len(due)

	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if opts.DryRun {
			r.log.InfoContext(ctx, "would renew subscription",
				logger.Sweep(res.Sweep), logger.SubscriptionID(sub.ID), logger.SubscriberRef(sub.Subscriber))
			continue
		}

		// Renewing extends from ends_at, so renewing a row twice would
		// double the extension. Re-read and re-verify due-ness first.
		fresh, err := r.svc.GetSubscription(ctx, sub.ID)
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			res.Skipped++
			continue
		} else if err != nil {
			r.fail(ctx, &res, sub.ID, fmt.Errorf("reload %s: %w", sub.ID, err))
			continue
		}
		if fresh.Status != lifecycle.StatusActive || !fresh.AutoRenewal ||
			fresh.EndsAt == nil || fresh.EndsAt.After(now) {
			res.Skipped++
			continue
		}

		if _, err := r.svc.Renew(ctx, fresh.ID, subscription.Automatic()); err != nil {
			if errors.Is(err, subscription.ErrInvalidSubscriptionState) {
				res.Skipped++
				continue
			}
			r.fail(ctx, &res, fresh.ID, fmt.Errorf("renew %s: %w", fresh.ID, err))
			continue
		}
		res.Processed++
	}
	return r.finish(ctx, res, opts), nil
}

// ResetDueUsage zeroes every usage counter of the given reset period
// whose last use predates the current calendar window. Counters the
// metering engine already reset lazily are skipped.
func (r *Runner) ResetDueUsage(ctx context.Context, period plan.ResetPeriod, opts Options) (Result, error) {
	res := Result{Sweep: "usage_reset"}
	if period == plan.ResetNever || !period.Valid() {
		return res, ErrInvalidPeriod
	}
	now := r.now()

	due, err := r.store.UsageDueForReset(ctx, period, now, opts.Limit)
	if err != nil {
		return res, errors.Join(ErrScanFailed, err)
	}
	res.Scanned = len(due)

	for _, item := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		subID, key := item.Usage.SubscriptionID, item.Usage.Key
		if opts.DryRun {
			r.log.InfoContext(ctx, "would reset usage counter",
				logger.Sweep(res.Sweep), logger.SubscriptionID(subID), logger.FeatureKey(key))
			continue
		}

		usage, err := r.store.GetUsage(ctx, subID, key)
		if errors.Is(err, metering.ErrUsageNotFound) {
			res.Skipped++
			continue
		} else if err != nil {
			r.fail(ctx, &res, subID, fmt.Errorf("reload usage %s/%s: %w", subID, key, err))
			continue
		}
		if usage.LastUsedAt == nil || !period.Elapsed(*usage.LastUsedAt, now) {
			res.Skipped++
			continue
		}

		ok, err := r.svc.ResetFeatureUsage(ctx, subID, key)
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			res.Skipped++
			continue
		} else if err != nil {
			r.fail(ctx, &res, subID, fmt.Errorf("reset usage %s/%s: %w", subID, key, err))
			continue
		}
		if !ok {
			res.Skipped++
			continue
		}
		res.Processed++
	}
	return r.finish(ctx, res, opts), nil
}

// ExpiringSoon lists active-family subscriptions whose paid period ends
// within the next days, for renewal reminders. It mutates nothing.
func (r *Runner) ExpiringSoon(ctx context.Context, days int) ([]*subscription.Subscription, error) {
	if days <= 0 {
		return nil, ErrInvalidWindow
	}
	return r.store.ExpiringWithin(ctx, r.now(), days)
}

func (r *Runner) fail(ctx context.Context, res *Result, id any, err error) {
	res.Failed++
	res.Errors = append(res.Errors, err)
	r.log.ErrorContext(ctx, "sweep item failed",
		logger.Sweep(res.Sweep), logger.SubscriptionID(id), logger.Error(err))
}

func (r *Runner) finish(ctx context.Context, res Result, opts Options) Result {
	r.log.InfoContext(ctx, "sweep finished",
		logger.Sweep(res.Sweep),
		slog.Int("scanned", res.Scanned),
		slog.Int("processed", res.Processed),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		logger.DryRun(opts.DryRun),
	)
	return res
}
