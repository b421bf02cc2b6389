// Package plan models the sellable catalog: plans, their pricing
// options (including multi-currency amounts), and feature entitlements
// with typed flexible values and usage reset periods.
//
// Plans are immutable value objects from the engine's point of view.
// A Source supplies the catalog, either statically from code or from
// YAML files:
//
//	source := plan.MustStaticSource(plan.Plan{
//	    ID:   uuid.New(),
//	    Slug: "basic",
//	    Name: flexvalue.String("Basic"),
//	    Active: true,
//	    Pricings: []plan.Pricing{
//	        {ID: uuid.New(), Label: "monthly", DurationDays: 30, Price: plan.Money{Amount: 1000, Currency: "USD"}},
//	    },
//	    Features: []plan.Feature{
//	        {Key: "api_calls", Value: flexvalue.Int(100), ResetPeriod: plan.ResetMonthly},
//	    },
//	})
//
// Or from a catalog file:
//
//	source := plan.NewYAMLSource("plans.yaml")
//	plans, err := source.Load(ctx)
//
// Soft-deleted plans are kept resolvable by ID so subscriptions created
// against them keep their original terms; only Sellable plans accept
// new subscriptions.
package plan
