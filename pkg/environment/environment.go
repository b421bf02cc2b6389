package environment

import (
	"context"
	"strings"
)

// Environment identifies the deployment environment an application runs in.
type Environment string

const (
	// Development is the default for local work.
	Development Environment = "development"
	// Staging mirrors production configuration with non-production data.
	Staging Environment = "staging"
	// Production is the live environment.
	Production Environment = "production"
)

// Parse maps a raw string, typically from an APP_ENV variable, to a known
// Environment. Common short forms are accepted; anything unrecognized falls
// back to Development so a typo cannot silently enable production behavior.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

type contextKey struct{}

// WithContext returns a context carrying the environment.
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the environment stored in ctx, or the empty string when
// none was set.
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(Environment)
	return env
}

// IsProduction reports whether the context carries the production environment.
func IsProduction(ctx context.Context) bool {
	return FromContext(ctx) == Production
}

// IsStaging reports whether the context carries the staging environment.
func IsStaging(ctx context.Context) bool {
	return FromContext(ctx) == Staging
}

// IsDevelopment reports whether the context carries the development environment.
func IsDevelopment(ctx context.Context) bool {
	return FromContext(ctx) == Development
}
