package subscription

// Config holds the business policy knobs of the service. Zero value is
// not usable; start from DefaultConfig and override what differs.
type Config struct {
	// GracePeriodDays is the window after ends_at during which access is
	// still granted and a lapsed subscription can still be resumed.
	GracePeriodDays int `env:"GRACE_PERIOD_DAYS" envDefault:"3"`

	// TrialMinDays and TrialMaxDays bound accepted trial durations.
	TrialMinDays int `env:"TRIAL_MIN_DAYS" envDefault:"3"`
	TrialMaxDays int `env:"TRIAL_MAX_DAYS" envDefault:"30"`

	// AllowMultipleTrialsPerPlan permits a subscriber to trial the same
	// plan more than once.
	AllowMultipleTrialsPerPlan bool `env:"ALLOW_MULTIPLE_TRIALS_PER_PLAN" envDefault:"false"`

	// AutoRenewalDefault is the auto-renewal flag for new subscriptions
	// unless overridden per call.
	AutoRenewalDefault bool `env:"AUTO_RENEWAL_DEFAULT" envDefault:"true"`

	// AllowDowngrades permits plan changes classified as downgrades.
	AllowDowngrades bool `env:"ALLOW_DOWNGRADES" envDefault:"true"`

	// ResetUsageOnPlanChange forces usage counters to reset on every
	// plan change, not only on downgrades.
	ResetUsageOnPlanChange bool `env:"RESET_USAGE_ON_PLAN_CHANGE" envDefault:"false"`

	// AllowPlanChangeDuringTrial permits changing plans while trialing.
	AllowPlanChangeDuringTrial bool `env:"ALLOW_PLAN_CHANGE_DURING_TRIAL" envDefault:"false"`

	// PreventDowngradeWithExcessUsage rejects downgrades while current
	// usage already exceeds a limit of the target plan.
	PreventDowngradeWithExcessUsage bool `env:"PREVENT_DOWNGRADE_WITH_EXCESS_USAGE" envDefault:"false"`

	// DefaultLocale and FallbackLocale drive resolution of localized
	// feature values when a caller does not request a locale.
	DefaultLocale  string `env:"DEFAULT_LOCALE" envDefault:""`
	FallbackLocale string `env:"FALLBACK_LOCALE" envDefault:""`
}

// DefaultConfig returns the standard policy: 3 grace days, trials
// between 3 and 30 days, auto-renewal on, downgrades allowed, usage
// reset only on downgrade.
func DefaultConfig() Config {
	return Config{
		GracePeriodDays:    3,
		TrialMinDays:       3,
		TrialMaxDays:       30,
		AutoRenewalDefault: true,
		AllowDowngrades:    true,
	}
}
