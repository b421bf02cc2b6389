// Package metering tracks feature usage against plan entitlements.
//
// The engine is wired with two resolver functions so it stays decoupled
// from how subscriptions and plans are stored: a FeatureResolver maps a
// subscription to its plan's feature set, and an ActiveResolver reports
// whether the subscription currently grants access. Usage counters live
// in a UsageStore and are created lazily on first consumption.
//
// Numeric feature values act as limits, null and non-numeric values
// mean unlimited, and each feature's reset period zeroes its counter
// lazily the next time it is touched after the period boundary.
//
// Usage:
//
//	store := metering.NewMemoryUsageStore()
//
//	eng := metering.NewEngine(store,
//		func(ctx context.Context, subID uuid.UUID) (map[string]plan.Feature, error) {
//			sub, err := subs.ByID(ctx, subID)
//			if err != nil {
//				return nil, err
//			}
//			return sub.Plan.FeatureSet(), nil
//		},
//		func(ctx context.Context, subID uuid.UUID) (bool, error) {
//			sub, err := subs.ByID(ctx, subID)
//			if err != nil {
//				return false, err
//			}
//			return sub.Active(time.Now()), nil
//		},
//	)
//
//	ok, err := eng.Consume(ctx, subID, "api_calls", 5)
//	if err != nil {
//		return err
//	}
//	if !ok {
//		return errQuotaExceeded
//	}
//
// Consume serializes per (subscription, feature) through a lock.Locker.
// The default locker is in-process; pass lock.NewRedisLocker through
// WithLocker when several instances share one store.
package metering
