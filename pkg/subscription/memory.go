package subscription

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/lifecycle"
	"github.com/dmitrymomot/subskit/pkg/metering"
	"github.com/dmitrymomot/subskit/pkg/plan"
)

type usageKey struct {
	subscriptionID uuid.UUID
	key            string
}

// MemoryStore is an in-memory Store for tests and single-process use.
// Transactions are serialized and rolled back by snapshot, so it honors
// the same atomicity contract as the database-backed stores.
type MemoryStore struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	plans map[uuid.UUID]plan.Plan
	subs  map[uuid.UUID]*Subscription
	usage map[usageKey]metering.Usage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans: make(map[uuid.UUID]plan.Plan),
		subs:  make(map[uuid.UUID]*Subscription),
		usage: make(map[usageKey]metering.Usage),
	}
}

func (s *MemoryStore) SavePlan(ctx context.Context, p plan.Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.plans[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return ErrPlanNotFound
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	s.plans[id] = p
	return nil
}

func (s *MemoryStore) PlanByID(ctx context.Context, id uuid.UUID) (plan.Plan, error) {
	if err := ctx.Err(); err != nil {
		return plan.Plan{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return plan.Plan{}, ErrPlanNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) PlanBySlug(ctx context.Context, slug string) (plan.Plan, error) {
	if err := ctx.Err(); err != nil {
		return plan.Plan{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plans {
		if p.Slug == slug && !p.IsDeleted() {
			return p.Clone(), nil
		}
	}
	return plan.Plan{}, ErrPlanNotFound
}

func (s *MemoryStore) ListPlans(ctx context.Context, includeInactive bool) ([]plan.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []plan.Plan
	for _, p := range s.plans {
		if p.IsDeleted() {
			continue
		}
		if !p.Active && !includeInactive {
			continue
		}
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b plan.Plan) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		return strings.Compare(a.Slug, b.Slug)
	})
	return out, nil
}

func (s *MemoryStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub.ID] = sub.Clone()
	return nil
}

func (s *MemoryStore) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.ID]; !ok {
		return ErrSubscriptionNotFound
	}
	s.subs[sub.ID] = sub.Clone()
	return nil
}

func (s *MemoryStore) SubscriptionByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub.Clone(), nil
}

func (s *MemoryStore) ActiveBySubscriber(ctx context.Context, ref Ref) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.Subscriber == ref && sub.Status.InActiveFamily() {
			return sub.Clone(), nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemoryStore) ListBySubscriber(ctx context.Context, ref Ref) ([]*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Subscription
	for _, sub := range s.subs {
		if sub.Subscriber == ref {
			out = append(out, sub.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, statuses ...lifecycle.Status) ([]*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Subscription
	for _, sub := range s.subs {
		if len(statuses) == 0 || slices.Contains(statuses, sub.Status) {
			out = append(out, sub.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) ExpiringWithin(ctx context.Context, at time.Time, days int) ([]*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	horizon := at.Add(time.Duration(days) * 24 * time.Hour)
	var out []*Subscription
	for _, sub := range s.subs {
		if !sub.Status.InActiveFamily() || sub.EndsAt == nil {
			continue
		}
		if !sub.EndsAt.Before(at) && !sub.EndsAt.After(horizon) {
			out = append(out, sub.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Subscription) int {
		return a.EndsAt.Compare(*b.EndsAt)
	})
	return out, nil
}

func (s *MemoryStore) DueForExpiry(ctx context.Context, at time.Time, limit int) ([]*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Subscription
	for _, sub := range s.subs {
		if !sub.Status.InActiveFamily() || sub.EndsAt == nil {
			continue
		}
		deadline := *sub.EndsAt
		if sub.GraceEndsAt != nil {
			deadline = *sub.GraceEndsAt
		}
		if deadline.Before(at) {
			out = append(out, sub.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Subscription) int {
		return expiryDeadline(a).Compare(expiryDeadline(b))
	})
	return capped(out, limit), nil
}

func (s *MemoryStore) DueForAutoRenewal(ctx context.Context, at time.Time, limit int) ([]*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Subscription
	for _, sub := range s.subs {
		if sub.Status != lifecycle.StatusActive || !sub.AutoRenewal || sub.EndsAt == nil {
			continue
		}
		if !sub.EndsAt.After(at) {
			out = append(out, sub.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Subscription) int {
		return a.EndsAt.Compare(*b.EndsAt)
	})
	return capped(out, limit), nil
}

func (s *MemoryStore) UsageDueForReset(ctx context.Context, period plan.ResetPeriod, at time.Time, limit int) ([]UsageDue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []UsageDue
	for k, usage := range s.usage {
		if usage.LastUsedAt == nil {
			continue
		}
		sub, ok := s.subs[k.subscriptionID]
		if !ok || !sub.Status.InActiveFamily() {
			continue
		}
		p, ok := s.plans[sub.PlanID]
		if !ok {
			continue
		}
		feature, ok := p.Feature(usage.Key)
		if !ok || feature.ResetPeriod != period {
			continue
		}
		if period.Elapsed(*usage.LastUsedAt, at) {
			out = append(out, UsageDue{Subscription: sub.Clone(), Usage: usage})
		}
	}
	slices.SortFunc(out, func(a, b UsageDue) int {
		if c := a.Usage.LastUsedAt.Compare(*b.Usage.LastUsedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Usage.Key, b.Usage.Key)
	})
	return capped(out, limit), nil
}

func (s *MemoryStore) HasTrialed(ctx context.Context, ref Ref, planID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.Subscriber == ref && sub.PlanID == planID && sub.TrialEndsAt != nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) GetUsage(ctx context.Context, subscriptionID uuid.UUID, key string) (metering.Usage, error) {
	if err := ctx.Err(); err != nil {
		return metering.Usage{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	usage, ok := s.usage[usageKey{subscriptionID, key}]
	if !ok {
		return metering.Usage{}, metering.ErrUsageNotFound
	}
	return usage, nil
}

func (s *MemoryStore) SaveUsage(ctx context.Context, usage metering.Usage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.usage[usageKey{usage.SubscriptionID, usage.Key}] = usage
	return nil
}

func (s *MemoryStore) ListUsage(ctx context.Context, subscriptionID uuid.UUID) ([]metering.Usage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []metering.Usage
	for k, usage := range s.usage {
		if k.subscriptionID == subscriptionID {
			out = append(out, usage)
		}
	}
	slices.SortFunc(out, func(a, b metering.Usage) int {
		return strings.Compare(a.Key, b.Key)
	})
	return out, nil
}

func (s *MemoryStore) ResetAllUsage(ctx context.Context, subscriptionID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, usage := range s.usage {
		if k.subscriptionID != subscriptionID {
			continue
		}
		usage.Used = 0
		usage.LastUsedAt = nil
		s.usage[k] = usage
	}
	return nil
}

// InTx serializes transactions with a dedicated mutex and rolls back by
// restoring a snapshot when fn fails. Transactions do not nest.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.restoreLocked(snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	plans map[uuid.UUID]plan.Plan
	subs  map[uuid.UUID]*Subscription
	usage map[usageKey]metering.Usage
}

func (s *MemoryStore) snapshotLocked() memSnapshot {
	snap := memSnapshot{
		plans: make(map[uuid.UUID]plan.Plan, len(s.plans)),
		subs:  make(map[uuid.UUID]*Subscription, len(s.subs)),
		usage: make(map[usageKey]metering.Usage, len(s.usage)),
	}
	for id, p := range s.plans {
		snap.plans[id] = p.Clone()
	}
	for id, sub := range s.subs {
		snap.subs[id] = sub.Clone()
	}
	for k, usage := range s.usage {
		snap.usage[k] = usage
	}
	return snap
}

func (s *MemoryStore) restoreLocked(snap memSnapshot) {
	s.plans = snap.plans
	s.subs = snap.subs
	s.usage = snap.usage
}

func sortNewestFirst(subs []*Subscription) {
	slices.SortFunc(subs, func(a, b *Subscription) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

func expiryDeadline(sub *Subscription) time.Time {
	if sub.GraceEndsAt != nil {
		return *sub.GraceEndsAt
	}
	return *sub.EndsAt
}

func capped[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
