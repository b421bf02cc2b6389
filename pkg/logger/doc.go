// Package logger builds context-aware slog loggers with functional options
// and attribute constructors shared across the codebase.
//
// New creates a *slog.Logger whose handler runs registered ContextExtractor
// callbacks on every record, so values carried in a context, like an
// environment tag or a trace ID, are logged without explicit With calls.
// Attribute constructors in attr.go (SubscriberRef, PlanSlug, FeatureKey,
// Sweep and friends) keep attribute names consistent between the service,
// the sweeps and the commands.
//
// # Usage
//
//	import "github.com/dmitrymomot/subskit/pkg/logger"
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "subskit-worker"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "subscription renewed",
//	    logger.SubscriptionID(sub.ID),
//	    logger.Status(sub.Status),
//	)
//
// The presets WithDevelopment, WithStaging and WithProduction choose format
// and level per environment; WithFormat, WithLevel, WithOutput and WithAttr
// tune individual knobs.
//
// Error and Errors emit nothing for nil errors, so success and failure paths
// can share one logging call.
package logger
