package sweep_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
	"github.com/dmitrymomot/subskit/pkg/lifecycle"
	"github.com/dmitrymomot/subskit/pkg/metering"
	"github.com/dmitrymomot/subskit/pkg/plan"
	"github.com/dmitrymomot/subskit/pkg/subscription"
	"github.com/dmitrymomot/subskit/pkg/sweep"
)

var sweepBase = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordSink struct {
	mu     sync.Mutex
	events []subscription.Event
}

func (s *recordSink) Publish(_ context.Context, events ...subscription.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *recordSink) All() []subscription.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]subscription.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staleStore serves canned scan results over a live store, standing in
// for rows that changed between the scan and the per-item processing.
type staleStore struct {
	subscription.Store
	dueExpiry  []*subscription.Subscription
	dueRenewal []*subscription.Subscription
	dueUsage   []subscription.UsageDue
}

func (s *staleStore) DueForExpiry(context.Context, time.Time, int) ([]*subscription.Subscription, error) {
	return s.dueExpiry, nil
}

func (s *staleStore) DueForAutoRenewal(context.Context, time.Time, int) ([]*subscription.Subscription, error) {
	return s.dueRenewal, nil
}

func (s *staleStore) UsageDueForReset(context.Context, plan.ResetPeriod, time.Time, int) ([]subscription.UsageDue, error) {
	return s.dueUsage, nil
}

// failingStore injects errors into selected store calls.
type failingStore struct {
	subscription.Store
	scanErr error
	failID  uuid.UUID
}

func (s *failingStore) DueForExpiry(ctx context.Context, at time.Time, limit int) ([]*subscription.Subscription, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return s.Store.DueForExpiry(ctx, at, limit)
}

func (s *failingStore) SubscriptionByID(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	if id == s.failID {
		return nil, assert.AnError
	}
	return s.Store.SubscriptionByID(ctx, id)
}

func meteredPlan() plan.Plan {
	planID := uuid.New()
	return plan.Plan{
		ID:     planID,
		Slug:   "metered",
		Name:   flexvalue.String("Metered"),
		Active: true,
		Pricings: []plan.Pricing{{
			ID:           uuid.New(),
			PlanID:       planID,
			Label:        "monthly",
			DurationDays: 30,
			Price:        plan.Money{Amount: 1500, Currency: "USD"},
		}},
		Features: []plan.Feature{
			{Key: "api_calls", Value: flexvalue.Int(100), ResetPeriod: plan.ResetDaily},
			{Key: "builds", Value: flexvalue.Int(50), ResetPeriod: plan.ResetMonthly},
		},
	}
}

type runnerFixture struct {
	store *subscription.MemoryStore
	svc   subscription.Service
	run   *sweep.Runner
	clock *fakeClock
	sink  *recordSink
	plan  plan.Plan
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()

	f := &runnerFixture{
		store: subscription.NewMemoryStore(),
		clock: &fakeClock{now: sweepBase},
		sink:  &recordSink{},
		plan:  meteredPlan(),
	}
	require.NoError(t, f.store.SavePlan(context.Background(), f.plan))

	f.svc = subscription.NewService(f.store,
		subscription.WithClock(f.clock.Now),
		subscription.WithSink(f.sink),
		subscription.WithLogger(discardLogger()),
	)
	f.run = sweep.NewRunner(f.svc, f.store,
		sweep.WithClock(f.clock.Now),
		sweep.WithLogger(discardLogger()),
	)
	return f
}

func (f *runnerFixture) subscribe(t *testing.T) *subscription.Subscription {
	t.Helper()
	sub, err := f.svc.Subscribe(context.Background(), subscription.NewRef("user", uuid.New()), f.plan.ID, uuid.Nil)
	require.NoError(t, err)
	return sub
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestNewRunner(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t)
	assert.Panics(t, func() { sweep.NewRunner(nil, f.store) })
	assert.Panics(t, func() { sweep.NewRunner(f.svc, nil) })
}

func TestRunnerExpireOverdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("expires lapsed subscriptions", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		lapsed := f.subscribe(t)
		f.clock.Advance(days(10))
		covered := f.subscribe(t)
		f.clock.Advance(days(24)) // day 34: lapsed is past grace, covered is not
		f.sink.Reset()

		res, err := f.run.ExpireOverdue(ctx, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Equal(t, 1, res.Processed)
		assert.Zero(t, res.Skipped)
		assert.Zero(t, res.Failed)

		got, err := f.svc.GetSubscription(ctx, lapsed.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusExpired, got.Status)

		untouched, err := f.svc.GetSubscription(ctx, covered.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusActive, untouched.Status)

		events := f.sink.All()
		require.Len(t, events, 1)
		expired, ok := events[0].(subscription.SubscriptionExpired)
		require.True(t, ok)
		assert.Equal(t, lapsed.ID, expired.Subscription.ID)
	})

	t.Run("dry run mutates nothing", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		sub := f.subscribe(t)
		f.clock.Advance(days(34))
		f.sink.Reset()

		res, err := f.run.ExpireOverdue(ctx, sweep.Options{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Zero(t, res.Processed)

		got, err := f.svc.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusActive, got.Status)
		assert.Empty(t, f.sink.All())
	})

	t.Run("limit caps the batch", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		for range 3 {
			f.subscribe(t)
		}
		f.clock.Advance(days(34))

		res, err := f.run.ExpireOverdue(ctx, sweep.Options{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Scanned)
		assert.Equal(t, 2, res.Processed)

		// A second pass picks up the remainder.
		res, err = f.run.ExpireOverdue(ctx, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Equal(t, 1, res.Processed)
	})

	t.Run("skips rows renewed since the scan", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		sub := f.subscribe(t)
		stale := sub.Clone()
		f.clock.Advance(days(34))
		_, err := f.svc.Renew(ctx, sub.ID)
		require.NoError(t, err)

		run := sweep.NewRunner(f.svc, &staleStore{Store: f.store, dueExpiry: []*subscription.Subscription{stale}},
			sweep.WithClock(f.clock.Now), sweep.WithLogger(discardLogger()))

		res, err := run.ExpireOverdue(ctx, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Equal(t, 1, res.Skipped)
		assert.Zero(t, res.Processed)

		got, err := f.svc.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusActive, got.Status)
	})

	t.Run("skips rows that vanished since the scan", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		ghost := &subscription.Subscription{ID: uuid.New(), Subscriber: subscription.NewRef("user", uuid.New())}

		run := sweep.NewRunner(f.svc, &staleStore{Store: f.store, dueExpiry: []*subscription.Subscription{ghost}},
			sweep.WithClock(f.clock.Now), sweep.WithLogger(discardLogger()))

		res, err := run.ExpireOverdue(ctx, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Equal(t, 1, res.Skipped)
	})

	t.Run("one failing row does not stop the pass", func(t *testing.T) {
		t.Parallel()
		store := &failingStore{Store: subscription.NewMemoryStore()}
		clock := &fakeClock{now: sweepBase}
		p := meteredPlan()
		require.NoError(t, store.SavePlan(ctx, p))
		svc := subscription.NewService(store,
			subscription.WithClock(clock.Now), subscription.WithLogger(discardLogger()))

		broken, err := svc.Subscribe(ctx, subscription.NewRef("user", uuid.New()), p.ID, uuid.Nil)
		require.NoError(t, err)
		healthy, err := svc.Subscribe(ctx, subscription.NewRef("user", uuid.New()), p.ID, uuid.Nil)
		require.NoError(t, err)
		clock.Advance(days(34))
		store.failID = broken.ID

		run := sweep.NewRunner(svc, store, sweep.WithClock(clock.Now), sweep.WithLogger(discardLogger()))
		res, err := run.ExpireOverdue(ctx, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Scanned)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, 1, res.Failed)
		require.Len(t, res.Errors, 1)
		assert.ErrorIs(t, res.Errors[0], assert.AnError)

		got, err := svc.GetSubscription(ctx, healthy.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusExpired, got.Status)
	})

	t.Run("scan failure aborts the pass", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		run := sweep.NewRunner(f.svc, &failingStore{Store: f.store, scanErr: assert.AnError},
			sweep.WithClock(f.clock.Now), sweep.WithLogger(discardLogger()))

		_, err := run.ExpireOverdue(ctx, sweep.Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, sweep.ErrScanFailed)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestRunnerAutoRenew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("renews due subscriptions", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		sub := f.subscribe(t)
		f.clock.Advance(days(30))
		f.sink.Reset()

		res, err := f.run.AutoRenew(ctx, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Equal(t, 1, res.Processed)

		got, err := f.svc.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		require.NotNil(t, got.EndsAt)
		assert.Equal(t, sweepBase.AddDate(0, 0, 60), *got.EndsAt)

		events := f.sink.All()
		require.Len(t, events, 1)
		renewed, ok := events[0].(subscription.SubscriptionRenewed)
		require.True(t, ok)
		assert.True(t, renewed.Automatic, "sweep renewals are marked automatic")
	})

	t.Run("manual subscriptions are not scanned", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		_, err := f.svc.Subscribe(ctx, subscription.NewRef("user", uuid.New()), f.plan.ID, uuid.Nil,
			subscription.WithAutoRenewal(false))
		require.NoError(t, err)
		f.clock.Advance(days(30))

		res, err := f.run.AutoRenew(ctx, sweep.Options{})
		require.NoError(t, err)
		assert.Zero(t, res.Scanned)
	})

	t.Run("skips rows renewed since the scan", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		sub := f.subscribe(t)
		stale := sub.Clone()
		f.clock.Advance(days(30))
		_, err := f.svc.Renew(ctx, sub.ID)
		require.NoError(t, err)
		endsBefore, err := f.svc.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)

		run := sweep.NewRunner(f.svc, &staleStore{Store: f.store, dueRenewal: []*subscription.Subscription{stale}},
			sweep.WithClock(f.clock.Now), sweep.WithLogger(discardLogger()))

		res, err := run.AutoRenew(ctx, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Skipped)
		assert.Zero(t, res.Processed)

		got, err := f.svc.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, *endsBefore.EndsAt, *got.EndsAt, "no double extension")
	})

	t.Run("dry run mutates nothing", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		sub := f.subscribe(t)
		f.clock.Advance(days(30))

		res, err := f.run.AutoRenew(ctx, sweep.Options{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Zero(t, res.Processed)

		got, err := f.svc.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, *sub.EndsAt, *got.EndsAt)
	})
}

func TestRunnerResetDueUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("resets stale daily counters", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		sub := f.subscribe(t)
		ref := sub.Subscriber

		ok, err := f.svc.ConsumeFeature(ctx, ref, "api_calls", 5)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = f.svc.ConsumeFeature(ctx, ref, "builds", 2)
		require.NoError(t, err)
		require.True(t, ok)

		f.clock.Advance(days(1))
		f.sink.Reset()

		res, err := f.run.ResetDueUsage(ctx, plan.ResetDaily, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned, "only the daily counter is due")
		assert.Equal(t, 1, res.Processed)

		apiCalls, err := f.store.GetUsage(ctx, sub.ID, "api_calls")
		require.NoError(t, err)
		assert.Zero(t, apiCalls.Used)
		assert.Nil(t, apiCalls.LastUsedAt)

		builds, err := f.store.GetUsage(ctx, sub.ID, "builds")
		require.NoError(t, err)
		assert.EqualValues(t, 2, builds.Used, "monthly counter is untouched")

		events := f.sink.All()
		require.Len(t, events, 1)
		reset, isReset := events[0].(subscription.FeatureUsageReset)
		require.True(t, isReset)
		assert.Equal(t, "api_calls", reset.Key)
	})

	t.Run("skips counters the engine reset lazily", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		sub := f.subscribe(t)
		ref := sub.Subscriber

		ok, err := f.svc.ConsumeFeature(ctx, ref, "api_calls", 5)
		require.NoError(t, err)
		require.True(t, ok)
		staleUsage, err := f.store.GetUsage(ctx, sub.ID, "api_calls")
		require.NoError(t, err)

		// Next-day consumption makes the engine reset the window itself.
		f.clock.Advance(days(1))
		ok, err = f.svc.ConsumeFeature(ctx, ref, "api_calls", 3)
		require.NoError(t, err)
		require.True(t, ok)

		run := sweep.NewRunner(f.svc, &staleStore{Store: f.store, dueUsage: []subscription.UsageDue{
			{Subscription: sub.Clone(), Usage: staleUsage},
		}}, sweep.WithClock(f.clock.Now), sweep.WithLogger(discardLogger()))

		res, err := run.ResetDueUsage(ctx, plan.ResetDaily, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Skipped)
		assert.Zero(t, res.Processed)

		current, err := f.store.GetUsage(ctx, sub.ID, "api_calls")
		require.NoError(t, err)
		assert.EqualValues(t, 3, current.Used, "today's usage survives")
	})

	t.Run("skips counters that vanished since the scan", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		run := sweep.NewRunner(f.svc, &staleStore{Store: f.store, dueUsage: []subscription.UsageDue{
			{Subscription: &subscription.Subscription{ID: uuid.New()}, Usage: metering.Usage{SubscriptionID: uuid.New(), Key: "api_calls"}},
		}}, sweep.WithClock(f.clock.Now), sweep.WithLogger(discardLogger()))

		res, err := run.ResetDueUsage(ctx, plan.ResetDaily, sweep.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Skipped)
	})

	t.Run("rejects invalid periods", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)

		_, err := f.run.ResetDueUsage(ctx, plan.ResetNever, sweep.Options{})
		assert.ErrorIs(t, err, sweep.ErrInvalidPeriod)
		_, err = f.run.ResetDueUsage(ctx, plan.ResetPeriod("weekly"), sweep.Options{})
		assert.ErrorIs(t, err, sweep.ErrInvalidPeriod)
	})

	t.Run("dry run mutates nothing", func(t *testing.T) {
		t.Parallel()
		f := newRunnerFixture(t)
		sub := f.subscribe(t)

		ok, err := f.svc.ConsumeFeature(ctx, sub.Subscriber, "api_calls", 5)
		require.NoError(t, err)
		require.True(t, ok)
		f.clock.Advance(days(1))

		res, err := f.run.ResetDueUsage(ctx, plan.ResetDaily, sweep.Options{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Zero(t, res.Processed)

		usage, err := f.store.GetUsage(ctx, sub.ID, "api_calls")
		require.NoError(t, err)
		assert.EqualValues(t, 5, usage.Used)
	})
}

func TestRunnerExpiringSoon(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newRunnerFixture(t)
	sub := f.subscribe(t) // ends on day 30

	soon, err := f.run.ExpiringSoon(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, soon, "thirty days out is not soon")

	f.clock.Advance(days(25))
	soon, err = f.run.ExpiringSoon(ctx, 7)
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, sub.ID, soon[0].ID)

	_, err = f.run.ExpiringSoon(ctx, 0)
	assert.ErrorIs(t, err, sweep.ErrInvalidWindow)
}
