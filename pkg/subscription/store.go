package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/lifecycle"
	"github.com/dmitrymomot/subskit/pkg/metering"
	"github.com/dmitrymomot/subskit/pkg/plan"
)

// UsageDue couples a stale usage counter with its owning subscription
// for the proactive reset sweep.
type UsageDue struct {
	Subscription *Subscription
	Usage        metering.Usage
}

// Store is the persistence boundary of the service: plan catalog rows,
// subscription rows, and usage counters. Implementations must return
// ErrSubscriptionNotFound / ErrPlanNotFound / metering.ErrUsageNotFound
// for missing rows and must hand out copies the caller may mutate.
type Store interface {
	metering.UsageStore

	// SavePlan inserts or updates a catalog plan with its pricings and
	// features.
	SavePlan(ctx context.Context, p plan.Plan) error
	// DeletePlan soft-deletes a plan. The row stays resolvable by id so
	// historical subscriptions keep their reference.
	DeletePlan(ctx context.Context, id uuid.UUID) error
	// PlanByID returns a plan, including soft-deleted ones.
	PlanByID(ctx context.Context, id uuid.UUID) (plan.Plan, error)
	// PlanBySlug returns a non-deleted plan by its slug.
	PlanBySlug(ctx context.Context, slug string) (plan.Plan, error)
	// ListPlans returns non-deleted plans ordered by sort order then
	// slug. Inactive plans are included only when requested.
	ListPlans(ctx context.Context, includeInactive bool) ([]plan.Plan, error)

	// CreateSubscription inserts a new subscription row.
	CreateSubscription(ctx context.Context, sub *Subscription) error
	// UpdateSubscription persists changed fields of an existing row.
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	// SubscriptionByID returns one subscription.
	SubscriptionByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	// ActiveBySubscriber returns the subscriber's active-family
	// subscription (status active or trial), or ErrSubscriptionNotFound.
	ActiveBySubscriber(ctx context.Context, ref Ref) (*Subscription, error)
	// ListBySubscriber returns all subscriptions of the subscriber,
	// newest first.
	ListBySubscriber(ctx context.Context, ref Ref) ([]*Subscription, error)
	// ListByStatus returns subscriptions in any of the given statuses.
	ListByStatus(ctx context.Context, statuses ...lifecycle.Status) ([]*Subscription, error)
	// ExpiringWithin returns active-family subscriptions whose ends_at
	// falls inside [at, at+days].
	ExpiringWithin(ctx context.Context, at time.Time, days int) ([]*Subscription, error)
	// DueForExpiry returns active-family subscriptions whose grace
	// deadline (or ends_at when no grace is set) lies strictly before
	// at, ordered by deadline. limit <= 0 means no limit.
	DueForExpiry(ctx context.Context, at time.Time, limit int) ([]*Subscription, error)
	// DueForAutoRenewal returns active auto-renewing subscriptions with
	// ends_at at or before at. limit <= 0 means no limit.
	DueForAutoRenewal(ctx context.Context, at time.Time, limit int) ([]*Subscription, error)
	// UsageDueForReset returns usage counters of active-family
	// subscriptions whose feature carries the given reset period and
	// whose last use predates the current period. limit <= 0 means no
	// limit.
	UsageDueForReset(ctx context.Context, period plan.ResetPeriod, at time.Time, limit int) ([]UsageDue, error)
	// HasTrialed reports whether the subscriber ever held a trial for
	// the plan.
	HasTrialed(ctx context.Context, ref Ref, planID uuid.UUID) (bool, error)

	// InTx runs fn atomically: an error return rolls back every write
	// fn performed through the passed store. fn must use the provided
	// context for its store calls so that backends carrying transaction
	// state in the context work.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
