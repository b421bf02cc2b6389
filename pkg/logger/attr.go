package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// SubscriberRef records the subscriber reference under the key
// "subscriber". Pass anything with a usable String method.
func SubscriberRef(ref any) slog.Attr {
	if ref == nil {
		return slog.Attr{}
	}
	return slog.Any("subscriber", ref)
}

// SubscriptionID records the subscription identifier under the key
// "subscription_id". If id is nil, it returns an empty Attr.
func SubscriptionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("subscription_id", id)
}

// PlanID records the plan identifier under the key "plan_id".
// If id is nil, it returns an empty Attr.
func PlanID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("plan_id", id)
}

// PlanSlug records the plan slug under the key "plan".
func PlanSlug(slug string) slog.Attr {
	return slog.String("plan", slug)
}

// PricingID records the pricing identifier under the key "pricing_id".
// If id is nil, it returns an empty Attr.
func PricingID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("pricing_id", id)
}

// FeatureKey records the feature key under the key "feature".
func FeatureKey(key string) slog.Attr {
	return slog.String("feature", key)
}

// Status records a subscription status under the key "status".
func Status(status any) slog.Attr {
	return slog.Any("status", status)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Sweep records the sweep name under the key "sweep".
func Sweep(name string) slog.Attr {
	return slog.String("sweep", name)
}

// Count records a result count under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// DryRun records the dry-run flag under the key "dry_run".
func DryRun(enabled bool) slog.Attr {
	return slog.Bool("dry_run", enabled)
}
