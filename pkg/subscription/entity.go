package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/lifecycle"
)

// Ref identifies the owning subscriber entity. The engine never
// resolves the owner itself; any entity type with a stable id can hold
// subscriptions.
type Ref struct {
	Type string
	ID   uuid.UUID
}

// NewRef builds a subscriber reference.
func NewRef(entityType string, id uuid.UUID) Ref {
	return Ref{Type: entityType, ID: id}
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == uuid.Nil
}

// Valid reports whether the reference names a type and an id.
func (r Ref) Valid() bool {
	return r.Type != "" && r.ID != uuid.Nil
}

// String renders the reference as "type:id", usable as a lock or log key.
func (r Ref) String() string {
	return r.Type + ":" + r.ID.String()
}

// Subscriber is the capability interface host entities implement to own
// subscriptions.
type Subscriber interface {
	SubscriberRef() Ref
}

// Subscription is the central lifecycle entity. Terminal rows (expired,
// canceled) are historical records and are never physically deleted.
type Subscription struct {
	ID          uuid.UUID
	Subscriber  Ref
	PlanID      uuid.UUID
	PricingID   uuid.UUID
	Status      lifecycle.Status
	StartsAt    time.Time
	EndsAt      *time.Time // nil = lifetime
	TrialEndsAt *time.Time
	GraceEndsAt *time.Time
	AutoRenewal bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// machine is shared by the entity predicates; the table is immutable.
var (
	machine = lifecycle.NewDefault()
	bg      = context.Background()
)

// Snapshot captures the period fields for lifecycle evaluation at the
// given time.
func (s *Subscription) Snapshot(at time.Time) lifecycle.Snapshot {
	return lifecycle.Snapshot{
		Status:      s.Status,
		EndsAt:      s.EndsAt,
		TrialEndsAt: s.TrialEndsAt,
		GraceEndsAt: s.GraceEndsAt,
		Now:         at,
	}
}

// Lifetime reports whether the subscription never expires on its own.
func (s *Subscription) Lifetime() bool { return s.EndsAt == nil }

// Active reports whether the subscription grants access at the given
// time: active-family status with a still-valid period.
func (s *Subscription) Active(at time.Time) bool {
	return s.Snapshot(at).Active()
}

// OnTrial reports whether the subscription is trialing at the given time.
func (s *Subscription) OnTrial(at time.Time) bool {
	return s.Snapshot(at).OnTrial()
}

// InGracePeriod reports whether the given time falls inside the grace
// window that follows the paid period.
func (s *Subscription) InGracePeriod(at time.Time) bool {
	return s.Snapshot(at).InGracePeriod()
}

// HasValidPeriod reports whether the paid period still covers the given
// time, counting grace.
func (s *Subscription) HasValidPeriod(at time.Time) bool {
	return s.Snapshot(at).HasValidPeriod()
}

// EndingSoon reports whether the subscription ends within the next
// thresholdDays at the given time.
func (s *Subscription) EndingSoon(at time.Time, thresholdDays int) bool {
	return s.Snapshot(at).EndingSoon(thresholdDays)
}

// CanActivate reports whether an activate transition would be accepted.
func (s *Subscription) CanActivate(at time.Time) bool {
	return machine.CanFire(bg, s.Snapshot(at), lifecycle.EventActivate)
}

// CanCancel reports whether a cancel transition would be accepted.
func (s *Subscription) CanCancel(at time.Time) bool {
	return machine.CanFire(bg, s.Snapshot(at), lifecycle.EventCancel)
}

// CanResume reports whether a resume transition would be accepted,
// which requires the period to still be covered.
func (s *Subscription) CanResume(at time.Time) bool {
	return machine.CanFire(bg, s.Snapshot(at), lifecycle.EventResume)
}

// CanRenew reports whether a renew transition would be accepted.
func (s *Subscription) CanRenew(at time.Time) bool {
	return machine.CanFire(bg, s.Snapshot(at), lifecycle.EventRenew)
}

// CanExpire reports whether an expire transition would be accepted.
func (s *Subscription) CanExpire(at time.Time) bool {
	return machine.CanFire(bg, s.Snapshot(at), lifecycle.EventExpire)
}

// Validate checks the row's internal consistency before it is written:
// identifiers present, status known, and period fields ordered.
func (s *Subscription) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSubscriptionNotFound
	}
	if !s.Subscriber.Valid() {
		return ErrInvalidSubscriber
	}
	if s.PlanID == uuid.Nil {
		return ErrPlanNotFound
	}
	if s.PricingID == uuid.Nil {
		return ErrPricingNotFound
	}
	if !s.Status.Valid() {
		return ErrInvalidSubscriptionState
	}
	if s.EndsAt != nil && s.EndsAt.Before(s.StartsAt) {
		return ErrInvalidSubscriptionState
	}
	if s.TrialEndsAt != nil && s.TrialEndsAt.Before(s.StartsAt) {
		return ErrInvalidTrialDuration
	}
	return nil
}

// TrialDaysRemaining returns the days left in the trial at the given
// time, rounding partial days up. Zero when not trialing.
func (s *Subscription) TrialDaysRemaining(at time.Time) int {
	if s.Status != lifecycle.StatusTrial || s.TrialEndsAt == nil {
		return 0
	}
	remaining := s.TrialEndsAt.Sub(at)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours()/24 + 0.5)
}

// Clone returns a deep copy of the subscription.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	out := *s
	out.EndsAt = cloneTime(s.EndsAt)
	out.TrialEndsAt = cloneTime(s.TrialEndsAt)
	out.GraceEndsAt = cloneTime(s.GraceEndsAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
