package plan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/flexvalue"
	"github.com/dmitrymomot/subskit/pkg/plan"
)

func TestStaticSource(t *testing.T) {
	t.Parallel()

	t.Run("load returns deep copies", func(t *testing.T) {
		t.Parallel()
		src, err := plan.NewStaticSource(testPlan())
		require.NoError(t, err)

		first, err := src.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, first, 1)

		first[0].Features[0].Key = "mutated"

		second, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "api_calls", second[0].Features[0].Key)
	})

	t.Run("rejects duplicate slugs", func(t *testing.T) {
		t.Parallel()
		_, err := plan.NewStaticSource(testPlan(), testPlan())
		assert.ErrorIs(t, err, plan.ErrDuplicateSlug)
	})

	t.Run("rejects invalid plan", func(t *testing.T) {
		t.Parallel()
		bad := testPlan()
		bad.Slug = ""
		_, err := plan.NewStaticSource(bad)
		assert.ErrorIs(t, err, plan.ErrInvalidSlug)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		src, err := plan.NewStaticSource(testPlan())
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = src.Load(ctx)
		assert.ErrorIs(t, err, plan.ErrFailedToLoadCatalog)
	})
}

const catalogYAML = `
plans:
  - slug: basic
    name:
      en: Basic
      de: Basis
    description: Entry tier
    sort_order: 1
    pricings:
      - label: monthly
        duration_days: 30
        price:
          amount: 1000
          currency: USD
        prices:
          - currency: EUR
            amount: 950
      - label: lifetime
        duration_days: 0
        price:
          amount: 49900
          currency: USD
        best_offer: true
    features:
      - key: api_calls
        name: API calls
        value: 100
        reset_period: monthly
      - key: storage_gb
        value: null
  - slug: pro
    active: false
    name: Pro
    pricings:
      - label: monthly
        duration_days: 30
        price:
          amount: 2500
          currency: USD
`

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	writeCatalog := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("loads catalog", func(t *testing.T) {
		t.Parallel()
		src := plan.NewYAMLSource(writeCatalog(t, catalogYAML))
		plans, err := src.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, plans, 2)

		basic := plans[0]
		assert.Equal(t, "basic", basic.Slug)
		assert.True(t, basic.Active, "active defaults to true")
		assert.True(t, basic.Name.IsLocalized())
		require.Len(t, basic.Pricings, 2)
		assert.True(t, basic.Pricings[1].Lifetime())
		assert.Equal(t, int64(950), basic.Pricings[0].PriceFor("EUR").Amount)

		f, ok := basic.Feature("api_calls")
		require.True(t, ok)
		assert.Equal(t, plan.ResetMonthly, f.ResetPeriod)
		limit, metered := f.Limit()
		require.True(t, metered)
		assert.Equal(t, int64(100), limit)

		storage, ok := basic.Feature("storage_gb")
		require.True(t, ok)
		assert.True(t, storage.Value.IsNull())
		assert.Equal(t, plan.ResetNever, storage.ResetPeriod)

		assert.False(t, plans[1].Active)
	})

	t.Run("ids are deterministic across loads", func(t *testing.T) {
		t.Parallel()
		path := writeCatalog(t, catalogYAML)
		src := plan.NewYAMLSource(path)

		first, err := src.Load(context.Background())
		require.NoError(t, err)
		second, err := src.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, first[0].ID, second[0].ID)
		assert.Equal(t, first[0].Pricings[0].ID, second[0].Pricings[0].ID)
		assert.NotEqual(t, first[0].ID, first[1].ID)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		src := plan.NewYAMLSource(filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := src.Load(context.Background())
		assert.ErrorIs(t, err, plan.ErrFailedToLoadCatalog)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		src := plan.NewYAMLSource(writeCatalog(t, "plans:\n  - slug: [broken"))
		_, err := src.Load(context.Background())
		assert.ErrorIs(t, err, plan.ErrFailedToParseCatalog)
	})

	t.Run("invalid catalog entry", func(t *testing.T) {
		t.Parallel()
		src := plan.NewYAMLSource(writeCatalog(t, "plans:\n  - slug: \"Bad Slug\"\n"))
		_, err := src.Load(context.Background())
		assert.ErrorIs(t, err, plan.ErrInvalidSlug)
	})
}

func TestParseCatalog(t *testing.T) {
	t.Parallel()

	t.Run("explicit id wins", func(t *testing.T) {
		t.Parallel()
		plans, err := plan.ParseCatalog([]byte(`
plans:
  - id: 6f1b7f3e-8f7d-4a3a-9e4e-2e1a9c1d2b3c
    slug: basic
    name: Basic
`))
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "6f1b7f3e-8f7d-4a3a-9e4e-2e1a9c1d2b3c", plans[0].ID.String())
	})

	t.Run("bad explicit id", func(t *testing.T) {
		t.Parallel()
		_, err := plan.ParseCatalog([]byte("plans:\n  - id: nope\n    slug: basic\n"))
		assert.ErrorIs(t, err, plan.ErrFailedToParseCatalog)
	})

	t.Run("localized feature value", func(t *testing.T) {
		t.Parallel()
		plans, err := plan.ParseCatalog([]byte(`
plans:
  - slug: basic
    name: Basic
    features:
      - key: api_calls
        value:
          en: 1000
          ar: 2000
`))
		require.NoError(t, err)
		f, ok := plans[0].Feature("api_calls")
		require.True(t, ok)
		require.True(t, f.Value.IsLocalized())
		got, ok := flexvalue.Resolve(f.Value, "ar", "en").Int()
		require.True(t, ok)
		assert.Equal(t, int64(2000), got)
	})
}
