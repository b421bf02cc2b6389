package lifecycle

import "time"

// Snapshot carries the fields transition guards and derived predicates
// evaluate: the current status, the period boundaries, and the instant
// the evaluation refers to. All predicates are pure functions of the
// snapshot, nothing is read from a clock.
type Snapshot struct {
	Status      Status
	EndsAt      *time.Time
	TrialEndsAt *time.Time
	GraceEndsAt *time.Time
	Now         time.Time
}

// Lifetime reports whether the subscription never expires on its own.
func (s Snapshot) Lifetime() bool { return s.EndsAt == nil }

// InGracePeriod reports whether the paid period has lapsed but the
// grace window still grants access: ends_at strictly past (or absent)
// and grace_ends_at not yet past. For ends_at=T and grace_ends_at=T+G
// this is exactly the interval (T, T+G].
func (s Snapshot) InGracePeriod() bool {
	if s.GraceEndsAt == nil || s.GraceEndsAt.Before(s.Now) {
		return false
	}
	return s.EndsAt == nil || s.EndsAt.Before(s.Now)
}

// HasValidPeriod reports whether access is still covered: lifetime,
// inside the grace window, or ends_at still in the future.
func (s Snapshot) HasValidPeriod() bool {
	if s.EndsAt == nil {
		return true
	}
	if s.InGracePeriod() {
		return true
	}
	return s.EndsAt.After(s.Now)
}

// Active reports whether the subscription grants access right now:
// active-family status with a valid period.
func (s Snapshot) Active() bool {
	return s.Status.InActiveFamily() && s.HasValidPeriod()
}

// OnTrial reports whether the subscription is in a running trial.
func (s Snapshot) OnTrial() bool {
	return s.Status == StatusTrial && s.TrialEndsAt != nil && s.TrialEndsAt.After(s.Now)
}

// EndingSoon reports whether ends_at falls within the next
// thresholdDays. Lifetime subscriptions never end soon.
func (s Snapshot) EndingSoon(thresholdDays int) bool {
	if s.EndsAt == nil {
		return false
	}
	until := s.EndsAt.Sub(s.Now)
	return until >= 0 && until <= time.Duration(thresholdDays)*24*time.Hour
}
