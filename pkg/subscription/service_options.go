package subscription

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/subskit/pkg/lock"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithConfig replaces the default business policy.
func WithConfig(cfg Config) ServiceOption {
	return func(s *service) {
		s.cfg = cfg
	}
}

// WithLocker replaces the in-process locker. Pass a Redis-backed locker
// when several instances share one store.
func WithLocker(l lock.Locker) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSink registers an event sink. Multiple sinks each receive every
// published event.
func WithSink(sink Sink) ServiceOption {
	return func(s *service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

type subscribeParams struct {
	trialDays int
	autoRenew *bool
}

// SubscribeOption configures a single Subscribe call.
type SubscribeOption func(*subscribeParams)

// WithTrialDays starts the subscription as a trial of the given length.
// The duration must fall inside the configured trial bounds.
func WithTrialDays(days int) SubscribeOption {
	return func(p *subscribeParams) {
		p.trialDays = days
	}
}

// WithAutoRenewal overrides the configured auto-renewal default for
// this subscription.
func WithAutoRenewal(enabled bool) SubscribeOption {
	return func(p *subscribeParams) {
		p.autoRenew = &enabled
	}
}

type renewParams struct {
	automatic bool
}

// RenewOption configures a single Renew call.
type RenewOption func(*renewParams)

// Automatic marks the renewal as scheduler-driven; the emitted event
// distinguishes it from a manual renewal.
func Automatic() RenewOption {
	return func(p *renewParams) {
		p.automatic = true
	}
}

type changeParams struct {
	resetUsage *bool
}

// ChangeOption configures a single ChangePlan call.
type ChangeOption func(*changeParams)

// WithUsageReset overrides the usage carry-over policy for this plan
// change: true forces a reset, false forces carry-forward.
func WithUsageReset(reset bool) ChangeOption {
	return func(p *changeParams) {
		p.resetUsage = &reset
	}
}
