// Package subscription is the orchestration layer of the entitlement
// engine: it owns the subscription lifecycle, plan catalog access, and
// feature consumption for any subscriber entity of the host
// application.
//
// The engine attaches to the host's own user or account model through a
// generic reference, so it never needs to know what a subscriber is:
//
//	ref := subscription.NewRef("user", userID)
//
// A subscriber holds at most one active-family subscription (status
// active or trial) at a time. The service enforces that invariant under
// a per-subscriber lock, so concurrent Subscribe calls for the same
// subscriber cannot both pass the existence check.
//
// # Setup
//
// The service needs a Store. The in-memory store suits tests and
// single-process setups; Postgres and Mongo stores cover production:
//
//	store := subscription.NewMemoryStore()
//	svc := subscription.NewService(store,
//		subscription.WithConfig(cfg),
//		subscription.WithSink(subscription.SinkFunc(func(ctx context.Context, events ...subscription.Event) error {
//			for _, e := range events {
//				log.Printf("event: %s", e.EventName())
//			}
//			return nil
//		})),
//	)
//
//	// Load the plan catalog into the store.
//	if err := svc.SyncCatalog(ctx, plan.NewYAMLSource("plans.yaml")); err != nil {
//		return err
//	}
//
// # Lifecycle
//
// Subscribe creates an active subscription; WithTrialDays starts it as
// a trial instead. Pass uuid.Nil as the pricing id to use the plan's
// default pricing:
//
//	sub, err := svc.Subscribe(ctx, ref, planID, pricingID)
//	trial, err := svc.StartTrial(ctx, ref, planID, 14)
//
// Cancel starts the grace window; Resume reverses it while the period
// is still covered. Renew extends the period from the current ends_at
// when it is still in the future, so early renewal loses no time:
//
//	_, err = svc.Cancel(ctx, sub.ID)
//	_, err = svc.Resume(ctx, sub.ID)
//	_, err = svc.Renew(ctx, sub.ID)
//
// ChangePlan cancels the current subscription and creates a new one,
// classifying the move as upgrade, downgrade, or lateral by comparing
// the plans' default prices. Downgrades reset usage counters.
//
// # Metering
//
// Consumption returns false, never an error, for business negatives
// like a missing subscription or an exhausted allowance:
//
//	ok, err := svc.ConsumeFeature(ctx, ref, "api_calls", 5)
//	if err != nil {
//		return err
//	}
//	if !ok {
//		return errQuotaExceeded
//	}
//
// # Events
//
// All lifecycle events are buffered during the operation and published
// only after the transaction commits. A failed operation emits nothing.
package subscription
