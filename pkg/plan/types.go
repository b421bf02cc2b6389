package plan

import "time"

// Unlimited is the remaining-allowance sentinel for features with no
// numeric cap.
const Unlimited int64 = -1

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  // Amount in smallest currency unit (cents for USD)
	Currency string // ISO 4217 currency code
}

// IsZero reports whether the amount is zero, i.e. the pricing is free.
func (m Money) IsZero() bool { return m.Amount == 0 }

// ResetPeriod defines how often a metered feature's usage counter
// returns to zero.
type ResetPeriod string

const (
	ResetNever   ResetPeriod = "never"
	ResetDaily   ResetPeriod = "daily"
	ResetMonthly ResetPeriod = "monthly"
	ResetYearly  ResetPeriod = "yearly"
)

// Valid reports whether the reset period is one of the known values.
func (p ResetPeriod) Valid() bool {
	switch p {
	case ResetNever, ResetDaily, ResetMonthly, ResetYearly:
		return true
	}
	return false
}

// PeriodStart returns the UTC start of the calendar period containing t.
// The second return is false for ResetNever, which has no boundary.
func (p ResetPeriod) PeriodStart(t time.Time) (time.Time, bool) {
	t = t.UTC()
	switch p {
	case ResetDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	case ResetMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
	case ResetYearly:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// Elapsed reports whether a counter last touched at lastUsed belongs to
// an earlier calendar period than now, meaning its usage is due a reset.
func (p ResetPeriod) Elapsed(lastUsed, now time.Time) bool {
	start, ok := p.PeriodStart(now)
	if !ok {
		return false
	}
	return lastUsed.UTC().Before(start)
}

// ChangeType classifies a plan change by comparing default prices.
type ChangeType string

const (
	ChangeUpgrade   ChangeType = "upgrade"
	ChangeDowngrade ChangeType = "downgrade"
	ChangeLateral   ChangeType = "lateral"
)
