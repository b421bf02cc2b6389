package metering

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
	"github.com/dmitrymomot/subskit/pkg/lock"
	"github.com/dmitrymomot/subskit/pkg/plan"
)

// Engine answers entitlement questions and mutates usage counters for a
// subscription. Limits come from the plan's feature values, consumption
// is tracked in a UsageStore, and counters reset lazily according to
// each feature's reset period.
type Engine interface {
	// FeatureValue returns the raw entitlement value of the feature, or
	// a null value when the plan does not define the key.
	FeatureValue(ctx context.Context, subscriptionID uuid.UUID, key string) (flexvalue.Value, error)

	// HasFeature reports whether the plan defines the feature key.
	HasFeature(ctx context.Context, subscriptionID uuid.UUID, key string) (bool, error)

	// Remaining returns how much of the feature is left, or nil when
	// the feature is missing or has no numeric limit.
	Remaining(ctx context.Context, subscriptionID uuid.UUID, key string) (*int64, error)

	// Exhausted reports whether a limited feature has no remaining
	// allowance. Features without a numeric limit are never exhausted.
	Exhausted(ctx context.Context, subscriptionID uuid.UUID, key string) (bool, error)

	// CanConsume reports whether amount units could be consumed right
	// now. Returns false without error when the feature is missing, the
	// subscription is not active, or the allowance is insufficient.
	CanConsume(ctx context.Context, subscriptionID uuid.UUID, key string, amount int64) (bool, error)

	// Consume records amount units of usage. It applies any due lazy
	// reset first, then re-checks the allowance and increments the
	// counter atomically. Returns false without error when consumption
	// is not possible.
	Consume(ctx context.Context, subscriptionID uuid.UUID, key string, amount int64) (bool, error)

	// ResetUsage zeroes the counter of one feature. Returns false when
	// no counter row exists yet.
	ResetUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (bool, error)

	// ResetAll unconditionally zeroes every counter of the subscription.
	ResetAll(ctx context.Context, subscriptionID uuid.UUID) error

	// Usages returns a reporting snapshot for every feature of the
	// subscription's plan, keyed by feature key.
	Usages(ctx context.Context, subscriptionID uuid.UUID) (map[string]UsageInfo, error)
}

type engine struct {
	store    UsageStore
	features FeatureResolver
	active   ActiveResolver
	locker   lock.Locker
	now      func() time.Time
	locale   string
	fallback string
}

// Option configures the engine.
type Option func(*engine)

// WithLocker replaces the in-process locker. Pass a Redis-backed locker
// when multiple instances share one usage store.
func WithLocker(l lock.Locker) Option {
	return func(e *engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocale sets the locale pair used to resolve localized limit
// values. Unset, resolution falls through to the first defined locale.
func WithLocale(locale, fallback string) Option {
	return func(e *engine) {
		e.locale = locale
		e.fallback = fallback
	}
}

// NewEngine creates a metering engine. The store and both resolvers are
// required; it panics when any of them is nil.
func NewEngine(store UsageStore, features FeatureResolver, active ActiveResolver, opts ...Option) Engine {
	if store == nil {
		panic("metering: usage store is required")
	}
	if features == nil {
		panic("metering: feature resolver is required")
	}
	if active == nil {
		panic("metering: active resolver is required")
	}

	e := &engine{
		store:    store,
		features: features,
		active:   active,
		locker:   lock.NewMemoryLocker(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) FeatureValue(ctx context.Context, subscriptionID uuid.UUID, key string) (flexvalue.Value, error) {
	f, ok, err := e.feature(ctx, subscriptionID, key)
	if err != nil || !ok {
		return flexvalue.Null(), err
	}
	return f.Value, nil
}

func (e *engine) HasFeature(ctx context.Context, subscriptionID uuid.UUID, key string) (bool, error) {
	_, ok, err := e.feature(ctx, subscriptionID, key)
	return ok, err
}

func (e *engine) Remaining(ctx context.Context, subscriptionID uuid.UUID, key string) (*int64, error) {
	f, ok, err := e.feature(ctx, subscriptionID, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	limit := e.limitOf(f)
	if limit == nil {
		return nil, nil
	}

	used, err := e.usedOf(ctx, subscriptionID, key)
	if err != nil {
		return nil, err
	}

	remaining := max(0, *limit-used)
	return &remaining, nil
}

func (e *engine) Exhausted(ctx context.Context, subscriptionID uuid.UUID, key string) (bool, error) {
	remaining, err := e.Remaining(ctx, subscriptionID, key)
	if err != nil {
		return false, err
	}
	return remaining != nil && *remaining <= 0, nil
}

func (e *engine) CanConsume(ctx context.Context, subscriptionID uuid.UUID, key string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	f, ok, err := e.feature(ctx, subscriptionID, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	active, err := e.active(ctx, subscriptionID)
	if err != nil {
		return false, errors.Join(ErrFailedToResolveStatus, err)
	}
	if !active {
		return false, nil
	}

	limit := e.limitOf(f)
	if limit == nil {
		return true, nil
	}

	used, err := e.usedOf(ctx, subscriptionID, key)
	if err != nil {
		return false, err
	}
	return used+amount <= *limit, nil
}

func (e *engine) Consume(ctx context.Context, subscriptionID uuid.UUID, key string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	f, ok, err := e.feature(ctx, subscriptionID, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	release, err := e.locker.Acquire(ctx, usageLockKey(subscriptionID, key))
	if err != nil {
		return false, errors.Join(ErrFailedToAcquireLock, err)
	}
	defer release() //nolint:errcheck

	usage, err := e.store.GetUsage(ctx, subscriptionID, key)
	switch {
	case errors.Is(err, ErrUsageNotFound):
		usage = Usage{SubscriptionID: subscriptionID, Key: key}
	case err != nil:
		return false, errors.Join(ErrFailedToReadUsage, err)
	}

	now := e.now()

	// A due reset is persisted even when the consumption below is
	// rejected, so the counter never serves a stale window.
	if usage.LastUsedAt != nil && f.ResetPeriod.Elapsed(*usage.LastUsedAt, now) {
		usage.Used = 0
		usage.LastUsedAt = nil
		if err := e.store.SaveUsage(ctx, usage); err != nil {
			return false, errors.Join(ErrFailedToSaveUsage, err)
		}
	}

	active, err := e.active(ctx, subscriptionID)
	if err != nil {
		return false, errors.Join(ErrFailedToResolveStatus, err)
	}
	if !active {
		return false, nil
	}

	if limit := e.limitOf(f); limit != nil && usage.Used+amount > *limit {
		return false, nil
	}

	usage.Used += amount
	usage.LastUsedAt = &now
	if err := e.store.SaveUsage(ctx, usage); err != nil {
		return false, errors.Join(ErrFailedToSaveUsage, err)
	}
	return true, nil
}

func (e *engine) ResetUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (bool, error) {
	release, err := e.locker.Acquire(ctx, usageLockKey(subscriptionID, key))
	if err != nil {
		return false, errors.Join(ErrFailedToAcquireLock, err)
	}
	defer release() //nolint:errcheck

	usage, err := e.store.GetUsage(ctx, subscriptionID, key)
	switch {
	case errors.Is(err, ErrUsageNotFound):
		return false, nil
	case err != nil:
		return false, errors.Join(ErrFailedToReadUsage, err)
	}

	usage.Used = 0
	usage.LastUsedAt = nil
	if err := e.store.SaveUsage(ctx, usage); err != nil {
		return false, errors.Join(ErrFailedToSaveUsage, err)
	}
	return true, nil
}

func (e *engine) ResetAll(ctx context.Context, subscriptionID uuid.UUID) error {
	if err := e.store.ResetAllUsage(ctx, subscriptionID); err != nil {
		return errors.Join(ErrFailedToResetUsage, err)
	}
	return nil
}

func (e *engine) Usages(ctx context.Context, subscriptionID uuid.UUID) (map[string]UsageInfo, error) {
	features, err := e.features(ctx, subscriptionID)
	if err != nil {
		return nil, errors.Join(ErrFailedToResolveFeatures, err)
	}

	rows, err := e.store.ListUsage(ctx, subscriptionID)
	if err != nil {
		return nil, errors.Join(ErrFailedToReadUsage, err)
	}
	used := make(map[string]int64, len(rows))
	for _, row := range rows {
		used[row.Key] = row.Used
	}

	out := make(map[string]UsageInfo, len(features))
	for key, f := range features {
		info := UsageInfo{Used: used[key], Limit: plan.Unlimited}
		if limit := e.limitOf(f); limit != nil {
			info.Limit = *limit
		}
		out[key] = info
	}
	return out, nil
}

func (e *engine) feature(ctx context.Context, subscriptionID uuid.UUID, key string) (plan.Feature, bool, error) {
	features, err := e.features(ctx, subscriptionID)
	if err != nil {
		return plan.Feature{}, false, errors.Join(ErrFailedToResolveFeatures, err)
	}
	f, ok := features[key]
	return f, ok, nil
}

// limitOf extracts the numeric cap of a feature, nil when the value is
// not numeric. Localized values resolve through the configured locale
// pair; float limits truncate toward zero.
func (e *engine) limitOf(f plan.Feature) *int64 {
	resolved := flexvalue.Resolve(f.Value, e.locale, e.fallback)
	switch resolved.Kind() {
	case flexvalue.KindInteger:
		v, _ := resolved.Int()
		return &v
	case flexvalue.KindFloat:
		fv, _ := resolved.Float()
		v := int64(fv)
		return &v
	}
	return nil
}

func (e *engine) usedOf(ctx context.Context, subscriptionID uuid.UUID, key string) (int64, error) {
	usage, err := e.store.GetUsage(ctx, subscriptionID, key)
	switch {
	case errors.Is(err, ErrUsageNotFound):
		return 0, nil
	case err != nil:
		return 0, errors.Join(ErrFailedToReadUsage, err)
	}
	return usage.Used, nil
}

func usageLockKey(subscriptionID uuid.UUID, key string) string {
	return "usage:" + subscriptionID.String() + ":" + key
}
