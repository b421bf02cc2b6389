package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
	"github.com/dmitrymomot/subskit/pkg/lifecycle"
	"github.com/dmitrymomot/subskit/pkg/lock"
	"github.com/dmitrymomot/subskit/pkg/logger"
	"github.com/dmitrymomot/subskit/pkg/metering"
	"github.com/dmitrymomot/subskit/pkg/plan"
)

// Service is the transactional entry point for all subscriber-facing
// lifecycle and metering operations. It composes the lifecycle machine
// and the metering engine, serializes writes per subscriber, and emits
// events only after the surrounding transaction commits.
type Service interface {
	// Lifecycle
	Subscribe(ctx context.Context, subscriber Ref, planID, pricingID uuid.UUID, opts ...SubscribeOption) (*Subscription, error)
	StartTrial(ctx context.Context, subscriber Ref, planID uuid.UUID, days int) (*Subscription, error)
	Activate(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error)
	Renew(ctx context.Context, subscriptionID uuid.UUID, opts ...RenewOption) (*Subscription, error)
	Cancel(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error)
	Resume(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error)
	Expire(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error)
	ChangePlan(ctx context.Context, subscriber Ref, planID, pricingID uuid.UUID, opts ...ChangeOption) (*Subscription, error)

	// Metering
	ConsumeFeature(ctx context.Context, subscriber Ref, key string, amount int64) (bool, error)
	CanConsumeFeature(ctx context.Context, subscriber Ref, key string, amount int64) (bool, error)
	ResetFeatureUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (bool, error)
	ResetAllUsage(ctx context.Context, subscriptionID uuid.UUID) error

	// Queries
	Current(ctx context.Context, subscriber Ref) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error)
	HasFeature(ctx context.Context, subscriber Ref, key string) (bool, error)
	FeatureValue(ctx context.Context, subscriber Ref, key, locale string) (flexvalue.Value, error)
	RemainingUsage(ctx context.Context, subscriber Ref, key string) (*int64, error)
	UsageSummary(ctx context.Context, subscriber Ref) (map[string]metering.UsageInfo, error)

	// Catalog
	Plans(ctx context.Context) ([]plan.Plan, error)
	GetPlan(ctx context.Context, slug string) (plan.Plan, error)
	SyncCatalog(ctx context.Context, src plan.Source) error
}

type service struct {
	store  Store
	cfg    Config
	locker lock.Locker
	sinks  []Sink
	engine metering.Engine
	now    func() time.Time
	log    *slog.Logger
}

// NewService creates the subscription service. The store is required;
// it panics on nil to fail fast during initialization. Policy defaults
// come from DefaultConfig and are overridden with WithConfig.
func NewService(store Store, opts ...ServiceOption) Service {
	if store == nil {
		panic("subscription: store is required")
	}

	s := &service{
		store:  store,
		cfg:    DefaultConfig(),
		locker: lock.NewMemoryLocker(),
		now:    func() time.Time { return time.Now().UTC() },
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = metering.NewEngine(store, s.resolveFeatures, s.resolveActive,
		metering.WithLocker(s.locker),
		metering.WithClock(s.now),
		metering.WithLocale(s.cfg.DefaultLocale, s.cfg.FallbackLocale),
	)
	return s
}

func (s *service) resolveFeatures(ctx context.Context, subscriptionID uuid.UUID) (map[string]plan.Feature, error) {
	sub, err := s.store.SubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.PlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return p.FeatureSet(), nil
}

func (s *service) resolveActive(ctx context.Context, subscriptionID uuid.UUID) (bool, error) {
	sub, err := s.store.SubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return false, err
	}
	return sub.Active(s.now()), nil
}

// Subscribe creates a subscription for the subscriber. Status starts as
// trial when WithTrialDays is given, active otherwise. Fails when the
// subscriber already holds an active-family subscription, the plan is
// not sellable, or the pricing does not belong to the plan. A nil
// pricing id selects the plan's default pricing.
func (s *service) Subscribe(ctx context.Context, subscriber Ref, planID, pricingID uuid.UUID, opts ...SubscribeOption) (*Subscription, error) {
	if !subscriber.Valid() {
		return nil, ErrInvalidSubscriber
	}

	var params subscribeParams
	for _, opt := range opts {
		opt(&params)
	}
	if params.trialDays != 0 && (params.trialDays < s.cfg.TrialMinDays || params.trialDays > s.cfg.TrialMaxDays) {
		return nil, ErrInvalidTrialDuration
	}

	p, pricing, err := s.sellablePricing(ctx, planID, pricingID)
	if err != nil {
		return nil, err
	}

	if params.trialDays > 0 && !s.cfg.AllowMultipleTrialsPerPlan {
		trialed, err := s.store.HasTrialed(ctx, subscriber, p.ID)
		if err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		if trialed {
			return nil, ErrTrialAlreadyUsed
		}
	}

	release, err := s.locker.Acquire(ctx, subscriberLockKey(subscriber))
	if err != nil {
		return nil, errors.Join(ErrFailedToLock, err)
	}
	defer release() //nolint:errcheck

	var (
		sub    *Subscription
		events []Event
	)
	err = s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.ActiveBySubscriber(ctx, subscriber); err == nil {
			return ErrAlreadySubscribed
		} else if !errors.Is(err, ErrSubscriptionNotFound) {
			return errors.Join(ErrStoreFailure, err)
		}

		now := s.now()
		sub = s.buildSubscription(subscriber, p, pricing, now, params)
		if err := sub.Validate(); err != nil {
			return err
		}
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}

		base := SubscriptionEvent{Subscriber: subscriber, Subscription: *sub.Clone()}
		events = append(events, SubscriptionCreated{base})
		if sub.Status == lifecycle.StatusTrial {
			events = append(events, TrialStarted{SubscriptionEvent: base, TrialDays: params.trialDays})
		} else {
			events = append(events, SubscriptionStarted{base})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events...)
	return sub, nil
}

// StartTrial subscribes with the plan's default pricing and the given
// trial length.
func (s *service) StartTrial(ctx context.Context, subscriber Ref, planID uuid.UUID, days int) (*Subscription, error) {
	if days <= 0 {
		return nil, ErrInvalidTrialDuration
	}
	return s.Subscribe(ctx, subscriber, planID, uuid.Nil, WithTrialDays(days))
}

// Activate transitions the subscription into active status. Activating
// an already-active subscription is an idempotent no-op: nothing is
// written and no event is emitted.
func (s *service) Activate(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error) {
	return s.mutate(ctx, subscriptionID, func(ctx context.Context, tx Store, sub *Subscription, now time.Time) ([]Event, error) {
		next, err := machine.Fire(ctx, sub.Snapshot(now), lifecycle.EventActivate)
		if err != nil {
			return nil, errors.Join(ErrInvalidSubscriptionState, err)
		}
		if next == sub.Status {
			return nil, nil
		}

		sub.Status = next
		sub.UpdatedAt = now
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		return []Event{SubscriptionStarted{s.eventBase(sub)}}, nil
	})
}

// Renew extends the subscription by its pricing's duration, continuing
// from the current ends_at when it is still in the future so early
// renewals lose no time. The grace window is recomputed from the new
// ends_at.
func (s *service) Renew(ctx context.Context, subscriptionID uuid.UUID, opts ...RenewOption) (*Subscription, error) {
	var params renewParams
	for _, opt := range opts {
		opt(&params)
	}

	return s.mutate(ctx, subscriptionID, func(ctx context.Context, tx Store, sub *Subscription, now time.Time) ([]Event, error) {
		next, err := machine.Fire(ctx, sub.Snapshot(now), lifecycle.EventRenew)
		if err != nil {
			return nil, errors.Join(ErrInvalidSubscriptionState, err)
		}

		p, err := tx.PlanByID(ctx, sub.PlanID)
		if err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		pricing, ok := p.Pricing(sub.PricingID)
		if !ok {
			return nil, ErrPricingNotFound
		}

		base := now
		if sub.EndsAt != nil && sub.EndsAt.After(now) {
			base = *sub.EndsAt
		}
		sub.Status = next
		sub.EndsAt = pricing.ExpiryFrom(base)
		sub.GraceEndsAt = s.graceFrom(sub.EndsAt)
		sub.UpdatedAt = now
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		return []Event{SubscriptionRenewed{SubscriptionEvent: s.eventBase(sub), Automatic: params.automatic}}, nil
	})
}

// Cancel transitions the subscription to canceled and recomputes the
// grace window from ends_at so the subscriber can still resume until it
// lapses. Lifetime subscriptions get no grace window.
func (s *service) Cancel(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error) {
	return s.mutate(ctx, subscriptionID, func(ctx context.Context, tx Store, sub *Subscription, now time.Time) ([]Event, error) {
		next, err := machine.Fire(ctx, sub.Snapshot(now), lifecycle.EventCancel)
		if err != nil {
			return nil, errors.Join(ErrInvalidSubscriptionState, err)
		}

		sub.Status = next
		sub.GraceEndsAt = s.graceFrom(sub.EndsAt)
		sub.UpdatedAt = now
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		return []Event{SubscriptionCanceled{SubscriptionEvent: s.eventBase(sub), GraceEndsAt: cloneTime(sub.GraceEndsAt)}}, nil
	})
}

// Resume reactivates a canceled subscription while its period is still
// covered. The grace window is cleared and the subscription is reported
// as started again.
func (s *service) Resume(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error) {
	return s.mutate(ctx, subscriptionID, func(ctx context.Context, tx Store, sub *Subscription, now time.Time) ([]Event, error) {
		next, err := machine.Fire(ctx, sub.Snapshot(now), lifecycle.EventResume)
		if err != nil {
			return nil, errors.Join(ErrInvalidSubscriptionState, err)
		}

		sub.Status = next
		sub.GraceEndsAt = nil
		sub.UpdatedAt = now
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		return []Event{SubscriptionStarted{s.eventBase(sub)}}, nil
	})
}

// Expire forces the subscription into expired status. Expiring an
// already-expired subscription is an idempotent no-op. The emitted
// event notes whether the subscription sat in its grace window.
func (s *service) Expire(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error) {
	return s.mutate(ctx, subscriptionID, func(ctx context.Context, tx Store, sub *Subscription, now time.Time) ([]Event, error) {
		fromGrace := sub.InGracePeriod(now)

		next, err := machine.Fire(ctx, sub.Snapshot(now), lifecycle.EventExpire)
		if err != nil {
			return nil, errors.Join(ErrInvalidSubscriptionState, err)
		}
		if next == sub.Status {
			return nil, nil
		}

		sub.Status = next
		sub.UpdatedAt = now
		if err := tx.UpdateSubscription(ctx, sub); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		return []Event{SubscriptionExpired{SubscriptionEvent: s.eventBase(sub), FromGrace: fromGrace}}, nil
	})
}

// ChangePlan moves the subscriber to another plan by canceling the
// current subscription and creating a new one starting now. The change
// is classified by comparing the plans' default prices; downgrades
// reset usage counters while upgrades and lateral changes carry them
// forward, unless overridden by configuration or WithUsageReset.
func (s *service) ChangePlan(ctx context.Context, subscriber Ref, planID, pricingID uuid.UUID, opts ...ChangeOption) (*Subscription, error) {
	if !subscriber.Valid() {
		return nil, ErrInvalidSubscriber
	}

	var params changeParams
	for _, opt := range opts {
		opt(&params)
	}

	newPlan, newPricing, err := s.sellablePricing(ctx, planID, pricingID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, subscriberLockKey(subscriber))
	if err != nil {
		return nil, errors.Join(ErrFailedToLock, err)
	}
	defer release() //nolint:errcheck

	var (
		created *Subscription
		events  []Event
	)
	err = s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		current, err := tx.ActiveBySubscriber(ctx, subscriber)
		if errors.Is(err, ErrSubscriptionNotFound) {
			return ErrNoActiveSubscription
		} else if err != nil {
			return errors.Join(ErrStoreFailure, err)
		}

		if current.Status == lifecycle.StatusTrial && !s.cfg.AllowPlanChangeDuringTrial {
			return ErrPlanChangeNotAllowed
		}
		if current.PlanID == newPlan.ID && current.PricingID == newPricing.ID {
			return ErrSamePlan
		}

		oldPlan, err := tx.PlanByID(ctx, current.PlanID)
		if err != nil {
			return errors.Join(ErrStoreFailure, err)
		}

		changeType := plan.ClassifyChange(oldPlan, newPlan)
		if changeType == plan.ChangeDowngrade {
			if !s.cfg.AllowDowngrades {
				return ErrDowngradeNotAllowed
			}
			if s.cfg.PreventDowngradeWithExcessUsage {
				if err := s.checkDowngradeUsage(ctx, tx, current.ID, newPlan); err != nil {
					return err
				}
			}
		}
		resetUsage := s.resolveUsageReset(params.resetUsage, changeType)

		now := s.now()

		// The old subscription is canceled, not mutated into the new
		// plan, so the historical record keeps its original terms.
		next, err := machine.Fire(ctx, current.Snapshot(now), lifecycle.EventCancel)
		if err != nil {
			return errors.Join(ErrInvalidSubscriptionState, err)
		}
		current.Status = next
		current.GraceEndsAt = s.graceFrom(current.EndsAt)
		current.UpdatedAt = now
		if err := tx.UpdateSubscription(ctx, current); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}

		created = s.buildSubscription(subscriber, newPlan, newPricing, now, subscribeParams{autoRenew: &current.AutoRenewal})
		if err := created.Validate(); err != nil {
			return err
		}
		if err := tx.CreateSubscription(ctx, created); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}

		if !resetUsage {
			if err := s.carryUsageForward(ctx, tx, current.ID, created.ID); err != nil {
				return err
			}
		}

		base := s.eventBase(created)
		events = append(events, SubscriptionCreated{base}, SubscriptionChanged{
			SubscriptionEvent: base,
			Change: ChangeSummary{
				Type:         changeType,
				OldPlanID:    current.PlanID,
				NewPlanID:    created.PlanID,
				OldPricingID: current.PricingID,
				NewPricingID: created.PricingID,
				UsageReset:   resetUsage,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events...)
	return created, nil
}

// ConsumeFeature records usage against the subscriber's active
// subscription. Returns false without error when the subscriber has no
// active subscription, the feature is missing, or the allowance is
// insufficient. Successful consumption emits FeatureUsed with the
// remaining allowance, plan.Unlimited for unbounded features.
func (s *service) ConsumeFeature(ctx context.Context, subscriber Ref, key string, amount int64) (bool, error) {
	current, err := s.currentFor(ctx, subscriber)
	if err != nil || current == nil {
		return false, err
	}

	ok, err := s.engine.Consume(ctx, current.ID, key, amount)
	if err != nil || !ok {
		return ok, err
	}

	remaining := plan.Unlimited
	if left, err := s.engine.Remaining(ctx, current.ID, key); err == nil && left != nil {
		remaining = *left
	}
	s.publish(ctx, FeatureUsed{
		SubscriptionEvent: s.eventBase(current),
		Key:               key,
		Amount:            amount,
		Remaining:         remaining,
	})
	return true, nil
}

// CanConsumeFeature reports whether the consumption would succeed right
// now, without recording anything.
func (s *service) CanConsumeFeature(ctx context.Context, subscriber Ref, key string, amount int64) (bool, error) {
	current, err := s.currentFor(ctx, subscriber)
	if err != nil || current == nil {
		return false, err
	}
	return s.engine.CanConsume(ctx, current.ID, key, amount)
}

// ResetFeatureUsage zeroes one usage counter of the subscription.
// Returns false when no counter row exists.
func (s *service) ResetFeatureUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (bool, error) {
	sub, err := s.store.SubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return false, err
	}

	ok, err := s.engine.ResetUsage(ctx, subscriptionID, key)
	if err != nil || !ok {
		return ok, err
	}
	s.publish(ctx, FeatureUsageReset{SubscriptionEvent: s.eventBase(sub), Key: key})
	return true, nil
}

// ResetAllUsage unconditionally zeroes every usage counter of the
// subscription.
func (s *service) ResetAllUsage(ctx context.Context, subscriptionID uuid.UUID) error {
	sub, err := s.store.SubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return err
	}

	if err := s.engine.ResetAll(ctx, subscriptionID); err != nil {
		return err
	}
	s.publish(ctx, FeatureUsageReset{SubscriptionEvent: s.eventBase(sub)})
	return nil
}

// Current returns the subscriber's active-family subscription, or nil
// without error when there is none.
func (s *service) Current(ctx context.Context, subscriber Ref) (*Subscription, error) {
	return s.currentFor(ctx, subscriber)
}

// GetSubscription returns one subscription by id.
func (s *service) GetSubscription(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error) {
	return s.store.SubscriptionByID(ctx, subscriptionID)
}

// HasFeature reports whether the subscriber's active subscription's
// plan defines the feature key. False without error when there is no
// active subscription.
func (s *service) HasFeature(ctx context.Context, subscriber Ref, key string) (bool, error) {
	current, err := s.currentFor(ctx, subscriber)
	if err != nil || current == nil {
		return false, err
	}
	return s.engine.HasFeature(ctx, current.ID, key)
}

// FeatureValue returns the entitlement value of the feature, resolved
// for the requested locale. An empty locale falls back to the
// configured default. Null when the subscriber has no active
// subscription or the plan does not define the key.
func (s *service) FeatureValue(ctx context.Context, subscriber Ref, key, locale string) (flexvalue.Value, error) {
	current, err := s.currentFor(ctx, subscriber)
	if err != nil || current == nil {
		return flexvalue.Null(), err
	}

	raw, err := s.engine.FeatureValue(ctx, current.ID, key)
	if err != nil {
		return flexvalue.Null(), err
	}
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}
	return flexvalue.Resolve(raw, locale, s.cfg.FallbackLocale), nil
}

// RemainingUsage returns the subscriber's remaining allowance for the
// feature, nil when unlimited or when there is no active subscription.
func (s *service) RemainingUsage(ctx context.Context, subscriber Ref, key string) (*int64, error) {
	current, err := s.currentFor(ctx, subscriber)
	if err != nil || current == nil {
		return nil, err
	}
	return s.engine.Remaining(ctx, current.ID, key)
}

// UsageSummary returns a usage snapshot for every feature of the
// subscriber's active subscription, nil when there is none.
func (s *service) UsageSummary(ctx context.Context, subscriber Ref) (map[string]metering.UsageInfo, error) {
	current, err := s.currentFor(ctx, subscriber)
	if err != nil || current == nil {
		return nil, err
	}
	return s.engine.Usages(ctx, current.ID)
}

// Plans returns the sellable catalog ordered by sort order.
func (s *service) Plans(ctx context.Context) ([]plan.Plan, error) {
	return s.store.ListPlans(ctx, false)
}

// GetPlan returns one plan by slug.
func (s *service) GetPlan(ctx context.Context, slug string) (plan.Plan, error) {
	return s.store.PlanBySlug(ctx, slug)
}

// SyncCatalog upserts every plan from the source into the store. Plans
// absent from the source are left untouched.
func (s *service) SyncCatalog(ctx context.Context, src plan.Source) error {
	plans, err := src.Load(ctx)
	if err != nil {
		return errors.Join(ErrFailedToLoadPlans, err)
	}

	return s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		for _, p := range plans {
			if err := tx.SavePlan(ctx, p); err != nil {
				return errors.Join(ErrStoreFailure, err)
			}
		}
		return nil
	})
}

// mutate serializes a lifecycle transition: it resolves the subscriber
// for the lock key, takes the per-subscriber lock, re-reads the row
// inside the transaction, and publishes the returned events only after
// commit. fn returning no events means a no-op; nothing is published.
func (s *service) mutate(ctx context.Context, subscriptionID uuid.UUID, fn func(ctx context.Context, tx Store, sub *Subscription, now time.Time) ([]Event, error)) (*Subscription, error) {
	sub, err := s.store.SubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, subscriberLockKey(sub.Subscriber))
	if err != nil {
		return nil, errors.Join(ErrFailedToLock, err)
	}
	defer release() //nolint:errcheck

	var (
		out    *Subscription
		events []Event
	)
	err = s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		fresh, err := tx.SubscriptionByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		evs, err := fn(ctx, tx, fresh, s.now())
		if err != nil {
			return err
		}
		out = fresh
		events = evs
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events...)
	return out, nil
}

func (s *service) currentFor(ctx context.Context, subscriber Ref) (*Subscription, error) {
	if !subscriber.Valid() {
		return nil, ErrInvalidSubscriber
	}
	current, err := s.store.ActiveBySubscriber(ctx, subscriber)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return current, nil
}

func (s *service) sellablePricing(ctx context.Context, planID, pricingID uuid.UUID) (plan.Plan, plan.Pricing, error) {
	p, err := s.store.PlanByID(ctx, planID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return plan.Plan{}, plan.Pricing{}, ErrPlanNotFound
		}
		return plan.Plan{}, plan.Pricing{}, errors.Join(ErrStoreFailure, err)
	}
	if !p.Sellable() {
		return plan.Plan{}, plan.Pricing{}, ErrPlanNotSellable
	}

	if pricingID == uuid.Nil {
		pricing, ok := p.DefaultPricing()
		if !ok {
			return plan.Plan{}, plan.Pricing{}, ErrPricingNotFound
		}
		return p, pricing, nil
	}
	pricing, ok := p.Pricing(pricingID)
	if !ok {
		return plan.Plan{}, plan.Pricing{}, ErrPricingNotFound
	}
	return p, pricing, nil
}

func (s *service) buildSubscription(subscriber Ref, p plan.Plan, pricing plan.Pricing, now time.Time, params subscribeParams) *Subscription {
	autoRenew := s.cfg.AutoRenewalDefault
	if params.autoRenew != nil {
		autoRenew = *params.autoRenew
	}

	sub := &Subscription{
		ID:          uuid.New(),
		Subscriber:  subscriber,
		PlanID:      p.ID,
		PricingID:   pricing.ID,
		Status:      lifecycle.StatusActive,
		StartsAt:    now,
		EndsAt:      pricing.ExpiryFrom(now),
		AutoRenewal: autoRenew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sub.GraceEndsAt = s.graceFrom(sub.EndsAt)
	if params.trialDays > 0 {
		sub.Status = lifecycle.StatusTrial
		trialEnd := now.AddDate(0, 0, params.trialDays)
		sub.TrialEndsAt = &trialEnd
	}
	return sub
}

func (s *service) graceFrom(endsAt *time.Time) *time.Time {
	if endsAt == nil || s.cfg.GracePeriodDays <= 0 {
		return nil
	}
	grace := endsAt.AddDate(0, 0, s.cfg.GracePeriodDays)
	return &grace
}

func (s *service) resolveUsageReset(override *bool, changeType plan.ChangeType) bool {
	if override != nil {
		return *override
	}
	if s.cfg.ResetUsageOnPlanChange {
		return true
	}
	return changeType == plan.ChangeDowngrade
}

// checkDowngradeUsage rejects the change while any counter already
// exceeds a numeric limit of the target plan.
func (s *service) checkDowngradeUsage(ctx context.Context, tx Store, subscriptionID uuid.UUID, target plan.Plan) error {
	rows, err := tx.ListUsage(ctx, subscriptionID)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	used := make(map[string]int64, len(rows))
	for _, row := range rows {
		used[row.Key] = row.Used
	}

	for _, f := range target.Features {
		limit, ok := f.Limit()
		if !ok {
			continue
		}
		if used[f.Key] > limit {
			return ErrDowngradeNotPossible
		}
	}
	return nil
}

func (s *service) carryUsageForward(ctx context.Context, tx Store, fromID, toID uuid.UUID) error {
	rows, err := tx.ListUsage(ctx, fromID)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	for _, row := range rows {
		row.SubscriptionID = toID
		if err := tx.SaveUsage(ctx, row); err != nil {
			return errors.Join(ErrStoreFailure, err)
		}
	}
	return nil
}

func (s *service) eventBase(sub *Subscription) SubscriptionEvent {
	return SubscriptionEvent{Subscriber: sub.Subscriber, Subscription: *sub.Clone()}
}

func (s *service) publish(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, events...); err != nil {
			s.log.ErrorContext(ctx, "failed to publish subscription events", logger.Error(err))
		}
	}
}

func subscriberLockKey(ref Ref) string {
	return "subscriber:" + ref.String()
}
