package metering

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/plan"
)

// Usage is one consumption counter, one row per (subscription, feature
// key) pair. Rows are created lazily on first consumption.
type Usage struct {
	SubscriptionID uuid.UUID
	Key            string
	Used           int64
	LastUsedAt     *time.Time
}

// UsageInfo is a reporting snapshot of one feature's counter.
type UsageInfo struct {
	Used  int64
	Limit int64 // plan.Unlimited (-1) when the feature has no numeric cap
}

// Remaining returns what is left under the limit, or plan.Unlimited for
// unbounded features.
func (u UsageInfo) Remaining() int64 {
	if u.Limit == plan.Unlimited {
		return plan.Unlimited
	}
	return max(0, u.Limit-u.Used)
}

// UsageStore persists usage counters. Implementations must make
// SaveUsage an upsert keyed by (subscription id, feature key).
type UsageStore interface {
	// GetUsage returns the counter row or ErrUsageNotFound.
	GetUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (Usage, error)
	// SaveUsage inserts or updates the counter row.
	SaveUsage(ctx context.Context, usage Usage) error
	// ListUsage returns every counter row of the subscription.
	ListUsage(ctx context.Context, subscriptionID uuid.UUID) ([]Usage, error)
	// ResetAllUsage zeroes every counter row of the subscription.
	ResetAllUsage(ctx context.Context, subscriptionID uuid.UUID) error
}

// FeatureResolver returns the feature entitlements of the
// subscription's plan, keyed by feature key.
type FeatureResolver func(ctx context.Context, subscriptionID uuid.UUID) (map[string]plan.Feature, error)

// ActiveResolver reports whether the subscription currently grants
// access (active-family status with a valid period).
type ActiveResolver func(ctx context.Context, subscriptionID uuid.UUID) (bool, error)
