package plan_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
	"github.com/dmitrymomot/subskit/pkg/plan"
)

func testPlan() plan.Plan {
	planID := uuid.New()
	return plan.Plan{
		ID:     planID,
		Slug:   "basic",
		Name:   flexvalue.String("Basic"),
		Active: true,
		Pricings: []plan.Pricing{
			{
				ID:           uuid.New(),
				PlanID:       planID,
				Label:        "monthly",
				DurationDays: 30,
				Price:        plan.Money{Amount: 1000, Currency: "USD"},
				Prices: []plan.Price{
					{Currency: "EUR", Amount: 950},
				},
			},
			{
				ID:           uuid.New(),
				PlanID:       planID,
				Label:        "yearly",
				DurationDays: 365,
				Price:        plan.Money{Amount: 10000, Currency: "USD"},
				BestOffer:    true,
			},
		},
		Features: []plan.Feature{
			{Key: "api_calls", Value: flexvalue.Int(100), ResetPeriod: plan.ResetMonthly},
			{Key: "sso", Value: flexvalue.Bool(true), ResetPeriod: plan.ResetNever},
			{Key: "storage_gb", Value: flexvalue.Null(), ResetPeriod: plan.ResetNever},
		},
	}
}

func TestPlanLookups(t *testing.T) {
	t.Parallel()

	p := testPlan()

	t.Run("feature by key", func(t *testing.T) {
		t.Parallel()
		f, ok := p.Feature("api_calls")
		require.True(t, ok)
		limit, metered := f.Limit()
		require.True(t, metered)
		assert.Equal(t, int64(100), limit)
	})

	t.Run("missing feature", func(t *testing.T) {
		t.Parallel()
		_, ok := p.Feature("unknown")
		assert.False(t, ok)
		assert.False(t, p.HasFeature("unknown"))
	})

	t.Run("null value has no limit", func(t *testing.T) {
		t.Parallel()
		f, ok := p.Feature("storage_gb")
		require.True(t, ok)
		_, metered := f.Limit()
		assert.False(t, metered)
		assert.False(t, f.Metered())
	})

	t.Run("boolean flag has no limit", func(t *testing.T) {
		t.Parallel()
		f, _ := p.Feature("sso")
		assert.False(t, f.Metered())
	})

	t.Run("pricing by id", func(t *testing.T) {
		t.Parallel()
		pr, ok := p.Pricing(p.Pricings[1].ID)
		require.True(t, ok)
		assert.Equal(t, "yearly", pr.Label)
	})

	t.Run("default pricing picks lowest amount", func(t *testing.T) {
		t.Parallel()
		pr, ok := p.DefaultPricing()
		require.True(t, ok)
		assert.Equal(t, "monthly", pr.Label)
	})
}

func TestPricing(t *testing.T) {
	t.Parallel()

	t.Run("expiry from duration", func(t *testing.T) {
		t.Parallel()
		pr := plan.Pricing{DurationDays: 30}
		start := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
		end := pr.ExpiryFrom(start)
		require.NotNil(t, end)
		assert.Equal(t, time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC), *end)
	})

	t.Run("lifetime has no expiry", func(t *testing.T) {
		t.Parallel()
		pr := plan.Pricing{DurationDays: 0}
		assert.True(t, pr.Lifetime())
		assert.Nil(t, pr.ExpiryFrom(time.Now()))
	})

	t.Run("currency specific price", func(t *testing.T) {
		t.Parallel()
		pr := plan.Pricing{
			Price:  plan.Money{Amount: 1000, Currency: "USD"},
			Prices: []plan.Price{{Currency: "EUR", Amount: 950}},
		}
		assert.Equal(t, int64(950), pr.PriceFor("eur").Amount)
	})

	t.Run("unknown currency falls back to base", func(t *testing.T) {
		t.Parallel()
		pr := plan.Pricing{Price: plan.Money{Amount: 1000, Currency: "USD"}}
		got := pr.PriceFor("GBP")
		assert.Equal(t, int64(1000), got.Amount)
		assert.Equal(t, "USD", got.Currency)
	})
}

func TestClassifyChange(t *testing.T) {
	t.Parallel()

	mk := func(amount int64) plan.Plan {
		return plan.Plan{
			Slug:     "p",
			Active:   true,
			Pricings: []plan.Pricing{{Label: "monthly", DurationDays: 30, Price: plan.Money{Amount: amount, Currency: "USD"}}},
		}
	}

	assert.Equal(t, plan.ChangeUpgrade, plan.ClassifyChange(mk(500), mk(1000)))
	assert.Equal(t, plan.ChangeDowngrade, plan.ClassifyChange(mk(1000), mk(500)))
	assert.Equal(t, plan.ChangeLateral, plan.ClassifyChange(mk(1000), mk(1000)))
}

func TestPlanValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid plan", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, testPlan().Validate())
	})

	t.Run("bad slug", func(t *testing.T) {
		t.Parallel()
		p := testPlan()
		p.Slug = "Basic Plan!"
		assert.ErrorIs(t, p.Validate(), plan.ErrInvalidSlug)
	})

	t.Run("no pricings", func(t *testing.T) {
		t.Parallel()
		p := testPlan()
		p.Pricings = nil
		assert.ErrorIs(t, p.Validate(), plan.ErrNoPricings)
	})

	t.Run("bad feature key", func(t *testing.T) {
		t.Parallel()
		p := testPlan()
		p.Features[0].Key = "API Calls"
		assert.ErrorIs(t, p.Validate(), plan.ErrInvalidFeatureKey)
	})

	t.Run("duplicate feature key", func(t *testing.T) {
		t.Parallel()
		p := testPlan()
		p.Features = append(p.Features, plan.Feature{Key: "api_calls", Value: flexvalue.Int(1)})
		assert.ErrorIs(t, p.Validate(), plan.ErrDuplicateFeatureKey)
	})

	t.Run("negative duration", func(t *testing.T) {
		t.Parallel()
		p := testPlan()
		p.Pricings[0].DurationDays = -1
		assert.ErrorIs(t, p.Validate(), plan.ErrInvalidDuration)
	})

	t.Run("duplicate currency", func(t *testing.T) {
		t.Parallel()
		p := testPlan()
		p.Pricings[0].Prices = append(p.Pricings[0].Prices, plan.Price{Currency: "eur", Amount: 900})
		assert.ErrorIs(t, p.Validate(), plan.ErrDuplicateCurrency)
	})

	t.Run("bad reset period", func(t *testing.T) {
		t.Parallel()
		p := testPlan()
		p.Features[0].ResetPeriod = "weekly"
		assert.ErrorIs(t, p.Validate(), plan.ErrInvalidResetPeriod)
	})
}

func TestResetPeriod(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	t.Run("daily boundary", func(t *testing.T) {
		t.Parallel()
		start, ok := plan.ResetDaily.PeriodStart(now)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), start)
	})

	t.Run("monthly boundary", func(t *testing.T) {
		t.Parallel()
		start, ok := plan.ResetMonthly.PeriodStart(now)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), start)
	})

	t.Run("yearly boundary", func(t *testing.T) {
		t.Parallel()
		start, ok := plan.ResetYearly.PeriodStart(now)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), start)
	})

	t.Run("never has no boundary", func(t *testing.T) {
		t.Parallel()
		_, ok := plan.ResetNever.PeriodStart(now)
		assert.False(t, ok)
		assert.False(t, plan.ResetNever.Elapsed(now.AddDate(-1, 0, 0), now))
	})

	t.Run("elapsed when last use before period start", func(t *testing.T) {
		t.Parallel()
		yesterday := now.AddDate(0, 0, -1)
		assert.True(t, plan.ResetDaily.Elapsed(yesterday, now))
		assert.False(t, plan.ResetDaily.Elapsed(now.Add(-time.Hour), now))
	})

	t.Run("monthly not elapsed within same month", func(t *testing.T) {
		t.Parallel()
		assert.False(t, plan.ResetMonthly.Elapsed(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), now))
		assert.True(t, plan.ResetMonthly.Elapsed(time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC), now))
	})
}
