// Package environment identifies the deployment environment an application
// runs in and propagates it through context.Context and structured logs.
//
// The typed string Environment has three predefined values: Development,
// Staging and Production. Parse maps raw configuration input, including short
// forms like "prod" and "stage", to one of them, falling back to Development
// for anything unrecognized.
//
// # Usage
//
// Resolve the environment from configuration at startup and attach it to the
// process context:
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	ctx := environment.WithContext(context.Background(), env)
//
// Downstream code queries it with FromContext or the predicates:
//
//	if environment.IsProduction(ctx) {
//	    // production-only behavior
//	}
//
// LoggerExtractor surfaces the environment as an "env" attribute on every log
// record when wired into the logger:
//
//	log := logger.New(
//	    logger.WithProduction("subskit-worker"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
package environment
