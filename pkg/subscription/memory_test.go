package subscription_test

import (
	"context"
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
)

func storePlan(slug string, amount int64, sortOrder int) plan.Plan {
	planID := uuid.New()
	return plan.Plan{
		ID:        planID,
		Slug:      slug,
		Name:      flexvalue.String(slug),
		Active:    true,
		SortOrder: sortOrder,
		Pricings: []plan.Pricing{{
			ID:           uuid.New(),
			PlanID:       planID,
			Label:        "monthly",
			DurationDays: 30,
			Price:        plan.Money{Amount: amount, Currency: "USD"},
		}},
		Features: []plan.Feature{
			{Key: "api_calls", Value: flexvalue.Int(100), ResetPeriod: plan.ResetMonthly},
			{Key: "exports", Value: flexvalue.Int(5), ResetPeriod: plan.ResetDaily},
		},
	}
}

func storeSub(ref subscription.Ref, planID uuid.UUID, status lifecycle.Status, createdAt time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		ID:         uuid.New(),
		Subscriber: ref,
		PlanID:     planID,
		PricingID:  uuid.New(),
		Status:     status,
		StartsAt:   createdAt,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestMemoryStorePlans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		p := storePlan("basic", 1000, 1)
		require.NoError(t, store.SavePlan(ctx, p))

		got, err := store.PlanByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Slug, got.Slug)
		assert.Len(t, got.Pricings, 1)
		assert.Len(t, got.Features, 2)

		bySlug, err := store.PlanBySlug(ctx, "basic")
		require.NoError(t, err)
		assert.Equal(t, p.ID, bySlug.ID)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		_, err := store.PlanByID(ctx, uuid.New())
		assert.ErrorIs(t, err, subscription.ErrPlanNotFound)
		_, err = store.PlanBySlug(ctx, "ghost")
		assert.ErrorIs(t, err, subscription.ErrPlanNotFound)
		assert.ErrorIs(t, store.DeletePlan(ctx, uuid.New()), subscription.ErrPlanNotFound)
	})

	t.Run("soft delete keeps id lookups", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		p := storePlan("basic", 1000, 1)
		require.NoError(t, store.SavePlan(ctx, p))
		require.NoError(t, store.DeletePlan(ctx, p.ID))

		got, err := store.PlanByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.IsDeleted())

		_, err = store.PlanBySlug(ctx, "basic")
		assert.ErrorIs(t, err, subscription.ErrPlanNotFound)

		plans, err := store.ListPlans(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, plans)
	})

	t.Run("list sorted and filtered", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		pro := storePlan("pro", 2500, 2)
		basic := storePlan("basic", 1000, 1)
		legacy := storePlan("legacy", 500, 3)
		legacy.Active = false
		for _, p := range []plan.Plan{pro, basic, legacy} {
			require.NoError(t, store.SavePlan(ctx, p))
		}

		active, err := store.ListPlans(ctx, false)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "basic", active[0].Slug)
		assert.Equal(t, "pro", active[1].Slug)

		all, err := store.ListPlans(ctx, true)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.Equal(t, "legacy", all[2].Slug)
	})

	t.Run("stored plan is isolated from caller", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		p := storePlan("basic", 1000, 1)
		require.NoError(t, store.SavePlan(ctx, p))

		p.Slug = "mutated"
		p.Features[0].Key = "mutated"

		got, err := store.PlanByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "basic", got.Slug)
		assert.Equal(t, "api_calls", got.Features[0].Key)
	})
}

func TestMemoryStoreSubscriptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("create and load", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		ref := subscription.NewRef("user", uuid.New())
		sub := storeSub(ref, uuid.New(), lifecycle.StatusActive, now)
		require.NoError(t, store.CreateSubscription(ctx, sub))

		got, err := store.SubscriptionByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub, got)

		// Returned rows are copies; mutations must not leak back.
		got.Status = lifecycle.StatusCanceled
		again, err := store.SubscriptionByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusActive, again.Status)
	})

	t.Run("update", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		sub := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		require.NoError(t, store.CreateSubscription(ctx, sub))

		sub.Status = lifecycle.StatusCanceled
		require.NoError(t, store.UpdateSubscription(ctx, sub))

		got, err := store.SubscriptionByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusCanceled, got.Status)

		missing := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		assert.ErrorIs(t, store.UpdateSubscription(ctx, missing), subscription.ErrSubscriptionNotFound)
	})

	t.Run("active by subscriber", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		ref := subscription.NewRef("user", uuid.New())

		expired := storeSub(ref, uuid.New(), lifecycle.StatusExpired, now.AddDate(0, -2, 0))
		trial := storeSub(ref, uuid.New(), lifecycle.StatusTrial, now.AddDate(0, -1, 0))
		for _, sub := range []*subscription.Subscription{expired, trial} {
			require.NoError(t, store.CreateSubscription(ctx, sub))
		}

		got, err := store.ActiveBySubscriber(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, trial.ID, got.ID)

		_, err = store.ActiveBySubscriber(ctx, subscription.NewRef("user", uuid.New()))
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})

	t.Run("list by subscriber newest first", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		ref := subscription.NewRef("user", uuid.New())

		old := storeSub(ref, uuid.New(), lifecycle.StatusExpired, now.AddDate(0, -2, 0))
		recent := storeSub(ref, uuid.New(), lifecycle.StatusActive, now)
		other := storeSub(subscription.NewRef("team", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		for _, sub := range []*subscription.Subscription{old, recent, other} {
			require.NoError(t, store.CreateSubscription(ctx, sub))
		}

		subs, err := store.ListBySubscriber(ctx, ref)
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, recent.ID, subs[0].ID)
		assert.Equal(t, old.ID, subs[1].ID)
	})

	t.Run("list by status", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		active := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		canceled := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusCanceled, now)
		for _, sub := range []*subscription.Subscription{active, canceled} {
			require.NoError(t, store.CreateSubscription(ctx, sub))
		}

		subs, err := store.ListByStatus(ctx, lifecycle.StatusCanceled)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, canceled.ID, subs[0].ID)
	})

	t.Run("has trialed", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		ref := subscription.NewRef("user", uuid.New())
		planID := uuid.New()

		sub := storeSub(ref, planID, lifecycle.StatusCanceled, now)
		sub.TrialEndsAt = timePtr(now.AddDate(0, 0, 7))
		require.NoError(t, store.CreateSubscription(ctx, sub))

		trialed, err := store.HasTrialed(ctx, ref, planID)
		require.NoError(t, err)
		assert.True(t, trialed)

		trialed, err = store.HasTrialed(ctx, ref, uuid.New())
		require.NoError(t, err)
		assert.False(t, trialed)
	})
}

func TestMemoryStoreSweepQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("expiring within window", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()

		soon := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		soon.EndsAt = timePtr(now.AddDate(0, 0, 3))
		later := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		later.EndsAt = timePtr(now.AddDate(0, 0, 20))
		lifetime := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		for _, sub := range []*subscription.Subscription{soon, later, lifetime} {
			require.NoError(t, store.CreateSubscription(ctx, sub))
		}

		subs, err := store.ExpiringWithin(ctx, now, 7)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, soon.ID, subs[0].ID)
	})

	t.Run("due for expiry honors grace deadline", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()

		// Ended but still inside grace: not due yet.
		graced := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		graced.EndsAt = timePtr(now.AddDate(0, 0, -1))
		graced.GraceEndsAt = timePtr(now.AddDate(0, 0, 2))

		// Grace lapsed: due.
		lapsed := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		lapsed.EndsAt = timePtr(now.AddDate(0, 0, -5))
		lapsed.GraceEndsAt = timePtr(now.AddDate(0, 0, -2))

		// No grace window at all: due right after ends_at.
		noGrace := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusCanceled, now)
		noGrace.EndsAt = timePtr(now.AddDate(0, 0, -4))

		for _, sub := range []*subscription.Subscription{graced, lapsed, noGrace} {
			require.NoError(t, store.CreateSubscription(ctx, sub))
		}

		due, err := store.DueForExpiry(ctx, now, 0)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, lapsed.ID, due[0].ID)

		// The canceled row never shows up: expiry only sweeps the
		// active family.
		due, err = store.DueForExpiry(ctx, now.AddDate(0, 1, 0), 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, lapsed.ID, due[0].ID)
		assert.Equal(t, graced.ID, due[1].ID)
	})

	t.Run("due for expiry limit", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		for i := range 5 {
			sub := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
			sub.EndsAt = timePtr(now.AddDate(0, 0, -10+i))
			require.NoError(t, store.CreateSubscription(ctx, sub))
		}

		due, err := store.DueForExpiry(ctx, now, 3)
		require.NoError(t, err)
		assert.Len(t, due, 3)
	})

	t.Run("due for auto renewal", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()

		due := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		due.AutoRenewal = true
		due.EndsAt = timePtr(now.Add(-time.Hour))

		manual := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		manual.EndsAt = timePtr(now.Add(-time.Hour))

		future := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)
		future.AutoRenewal = true
		future.EndsAt = timePtr(now.AddDate(0, 0, 10))

		trialing := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusTrial, now)
		trialing.AutoRenewal = true
		trialing.EndsAt = timePtr(now.Add(-time.Hour))

		for _, sub := range []*subscription.Subscription{due, manual, future, trialing} {
			require.NoError(t, store.CreateSubscription(ctx, sub))
		}

		got, err := store.DueForAutoRenewal(ctx, now, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, due.ID, got[0].ID)
	})

	t.Run("usage due for reset", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		p := storePlan("basic", 1000, 1)
		require.NoError(t, store.SavePlan(ctx, p))

		ref := subscription.NewRef("user", uuid.New())
		sub := storeSub(ref, p.ID, lifecycle.StatusActive, now)
		require.NoError(t, store.CreateSubscription(ctx, sub))

		// api_calls resets monthly and was last used in February: due.
		require.NoError(t, store.SaveUsage(ctx, metering.Usage{
			SubscriptionID: sub.ID, Key: "api_calls", Used: 42,
			LastUsedAt: timePtr(time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)),
		}))
		// exports resets daily; used this morning, so not due.
		require.NoError(t, store.SaveUsage(ctx, metering.Usage{
			SubscriptionID: sub.ID, Key: "exports", Used: 2,
			LastUsedAt: timePtr(now.Add(-time.Hour)),
		}))

		monthly, err := store.UsageDueForReset(ctx, plan.ResetMonthly, now, 0)
		require.NoError(t, err)
		require.Len(t, monthly, 1)
		assert.Equal(t, "api_calls", monthly[0].Usage.Key)
		assert.Equal(t, sub.ID, monthly[0].Subscription.ID)
		assert.EqualValues(t, 42, monthly[0].Usage.Used)

		daily, err := store.UsageDueForReset(ctx, plan.ResetDaily, now, 0)
		require.NoError(t, err)
		assert.Empty(t, daily)

		// Yesterday's export usage becomes due the next morning.
		require.NoError(t, store.SaveUsage(ctx, metering.Usage{
			SubscriptionID: sub.ID, Key: "exports", Used: 2,
			LastUsedAt: timePtr(now.AddDate(0, 0, -1)),
		}))
		daily, err = store.UsageDueForReset(ctx, plan.ResetDaily, now, 0)
		require.NoError(t, err)
		require.Len(t, daily, 1)
		assert.Equal(t, "exports", daily[0].Usage.Key)

		never, err := store.UsageDueForReset(ctx, plan.ResetNever, now, 0)
		require.NoError(t, err)
		assert.Empty(t, never)
	})

	t.Run("usage reset skips inactive subscriptions", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		p := storePlan("basic", 1000, 1)
		require.NoError(t, store.SavePlan(ctx, p))

		sub := storeSub(subscription.NewRef("user", uuid.New()), p.ID, lifecycle.StatusExpired, now)
		require.NoError(t, store.CreateSubscription(ctx, sub))
		require.NoError(t, store.SaveUsage(ctx, metering.Usage{
			SubscriptionID: sub.ID, Key: "api_calls", Used: 10,
			LastUsedAt: timePtr(now.AddDate(0, -1, 0)),
		}))

		due, err := store.UsageDueForReset(ctx, plan.ResetMonthly, now, 0)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestMemoryStoreUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("missing row", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		_, err := store.GetUsage(ctx, uuid.New(), "api_calls")
		assert.ErrorIs(t, err, metering.ErrUsageNotFound)
	})

	t.Run("save get list", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		subID := uuid.New()

		require.NoError(t, store.SaveUsage(ctx, metering.Usage{SubscriptionID: subID, Key: "exports", Used: 1, LastUsedAt: timePtr(now)}))
		require.NoError(t, store.SaveUsage(ctx, metering.Usage{SubscriptionID: subID, Key: "api_calls", Used: 7, LastUsedAt: timePtr(now)}))
		require.NoError(t, store.SaveUsage(ctx, metering.Usage{SubscriptionID: uuid.New(), Key: "api_calls", Used: 3, LastUsedAt: timePtr(now)}))

		got, err := store.GetUsage(ctx, subID, "api_calls")
		require.NoError(t, err)
		assert.EqualValues(t, 7, got.Used)

		rows, err := store.ListUsage(ctx, subID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "api_calls", rows[0].Key)
		assert.Equal(t, "exports", rows[1].Key)
	})

	t.Run("reset all", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		subID := uuid.New()
		other := uuid.New()

		require.NoError(t, store.SaveUsage(ctx, metering.Usage{SubscriptionID: subID, Key: "api_calls", Used: 7, LastUsedAt: timePtr(now)}))
		require.NoError(t, store.SaveUsage(ctx, metering.Usage{SubscriptionID: other, Key: "api_calls", Used: 9, LastUsedAt: timePtr(now)}))
		require.NoError(t, store.ResetAllUsage(ctx, subID))

		reset, err := store.GetUsage(ctx, subID, "api_calls")
		require.NoError(t, err)
		assert.Zero(t, reset.Used)
		assert.Nil(t, reset.LastUsedAt)

		untouched, err := store.GetUsage(ctx, other, "api_calls")
		require.NoError(t, err)
		assert.EqualValues(t, 9, untouched.Used)
	})
}

func TestMemoryStoreInTx(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("commit persists writes", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		sub := storeSub(subscription.NewRef("user", uuid.New()), uuid.New(), lifecycle.StatusActive, now)

		err := store.InTx(ctx, func(ctx context.Context, tx subscription.Store) error {
			return tx.CreateSubscription(ctx, sub)
		})
		require.NoError(t, err)

		got, err := store.SubscriptionByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
	})

	t.Run("error rolls back every write", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		p := storePlan("basic", 1000, 1)
		require.NoError(t, store.SavePlan(ctx, p))

		existing := storeSub(subscription.NewRef("user", uuid.New()), p.ID, lifecycle.StatusActive, now)
		require.NoError(t, store.CreateSubscription(ctx, existing))
		require.NoError(t, store.SaveUsage(ctx, metering.Usage{SubscriptionID: existing.ID, Key: "api_calls", Used: 5}))

		boom := assert.AnError
		created := storeSub(subscription.NewRef("user", uuid.New()), p.ID, lifecycle.StatusActive, now)
		err := store.InTx(ctx, func(ctx context.Context, tx subscription.Store) error {
			if err := tx.CreateSubscription(ctx, created); err != nil {
				return err
			}
			existing.Status = lifecycle.StatusCanceled
			if err := tx.UpdateSubscription(ctx, existing); err != nil {
				return err
			}
			if err := tx.SaveUsage(ctx, metering.Usage{SubscriptionID: existing.ID, Key: "api_calls", Used: 99}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = store.SubscriptionByID(ctx, created.ID)
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)

		got, err := store.SubscriptionByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusActive, got.Status)

		usage, err := store.GetUsage(ctx, existing.ID, "api_calls")
		require.NoError(t, err)
		assert.EqualValues(t, 5, usage.Used)
	})
}
