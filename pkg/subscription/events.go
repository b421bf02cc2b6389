package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/plan"
)

// Event is implemented by every notification the service emits.
// Lifecycle events are buffered during an operation and published only
// after the surrounding transaction commits; a failed operation emits
// nothing.
type Event interface {
	EventName() string
}

// Sink receives published events. Implementations may fan out to an
// in-process observer list, an outbox table, or a message broker.
type Sink interface {
	Publish(ctx context.Context, events ...Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, events ...Event) error

func (f SinkFunc) Publish(ctx context.Context, events ...Event) error {
	return f(ctx, events...)
}

// MultiSink fans events out to several sinks in order. Every sink is
// tried even when an earlier one fails; Publish returns the joined
// failures. Nil sinks are skipped.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Publish(ctx context.Context, events ...Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SubscriptionEvent carries what every event shares: the subscriber
// reference and a snapshot of the subscription as it was committed.
type SubscriptionEvent struct {
	Subscriber   Ref
	Subscription Subscription
}

// SubscriptionCreated signals that a new subscription row exists,
// regardless of its initial status.
type SubscriptionCreated struct {
	SubscriptionEvent
}

func (SubscriptionCreated) EventName() string { return "subscription.created" }

// SubscriptionStarted signals that a subscription became active, either
// on creation without a trial, on activation, or on resume.
type SubscriptionStarted struct {
	SubscriptionEvent
}

func (SubscriptionStarted) EventName() string { return "subscription.started" }

// TrialStarted signals that a subscription began in trial status.
type TrialStarted struct {
	SubscriptionEvent
	TrialDays int
}

func (TrialStarted) EventName() string { return "subscription.trial_started" }

// ChangeSummary describes a plan change for the SubscriptionChanged event.
type ChangeSummary struct {
	Type         plan.ChangeType
	OldPlanID    uuid.UUID
	NewPlanID    uuid.UUID
	OldPricingID uuid.UUID
	NewPricingID uuid.UUID
	UsageReset   bool
}

// SubscriptionChanged signals a plan change. The carried subscription is
// the newly created one; the summary links it to the superseded plan.
type SubscriptionChanged struct {
	SubscriptionEvent
	Change ChangeSummary
}

func (SubscriptionChanged) EventName() string { return "subscription.changed" }

// SubscriptionCanceled signals a cancellation and the grace window that
// started with it, when any.
type SubscriptionCanceled struct {
	SubscriptionEvent
	GraceEndsAt *time.Time
}

func (SubscriptionCanceled) EventName() string { return "subscription.canceled" }

// SubscriptionRenewed signals a period extension. Automatic is true for
// scheduler-driven renewals.
type SubscriptionRenewed struct {
	SubscriptionEvent
	Automatic bool
}

func (SubscriptionRenewed) EventName() string { return "subscription.renewed" }

// SubscriptionExpired signals a forced expiry. FromGrace is true when
// the subscription sat in its grace window at the time.
type SubscriptionExpired struct {
	SubscriptionEvent
	FromGrace bool
}

func (SubscriptionExpired) EventName() string { return "subscription.expired" }

// FeatureUsed signals successful consumption. Remaining carries the
// allowance left after the increment, plan.Unlimited for unbounded
// features.
type FeatureUsed struct {
	SubscriptionEvent
	Key       string
	Amount    int64
	Remaining int64
}

func (FeatureUsed) EventName() string { return "subscription.feature_used" }

// FeatureUsageReset signals an explicit counter reset. Key is empty
// when every counter of the subscription was reset at once.
type FeatureUsageReset struct {
	SubscriptionEvent
	Key string
}

func (FeatureUsageReset) EventName() string { return "subscription.usage_reset" }
