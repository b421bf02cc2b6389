package plan

import "errors"

// Domain errors for plan catalog operations
var (
	ErrInvalidSlug          = errors.New("plan.errors.invalid_slug")
	ErrInvalidFeatureKey    = errors.New("plan.errors.invalid_feature_key")
	ErrInvalidResetPeriod   = errors.New("plan.errors.invalid_reset_period")
	ErrInvalidDuration      = errors.New("plan.errors.invalid_duration")
	ErrInvalidPrice         = errors.New("plan.errors.invalid_price")
	ErrDuplicateSlug        = errors.New("plan.errors.duplicate_slug")
	ErrDuplicateFeatureKey  = errors.New("plan.errors.duplicate_feature_key")
	ErrDuplicatePricing     = errors.New("plan.errors.duplicate_pricing")
	ErrDuplicateCurrency    = errors.New("plan.errors.duplicate_currency")
	ErrNoPricings           = errors.New("plan.errors.no_pricings")
	ErrFailedToLoadCatalog  = errors.New("plan.errors.failed_to_load_catalog")
	ErrFailedToParseCatalog = errors.New("plan.errors.failed_to_parse_catalog")
)
