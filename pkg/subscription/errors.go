package subscription

import "errors"

var (
	ErrPlanNotFound    = errors.New("subscription plan not found")
	ErrPlanNotSellable = errors.New("subscription plan is not available for sale")
	ErrPricingNotFound = errors.New("plan pricing not found")

	ErrInvalidSubscriber    = errors.New("invalid subscriber reference")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrAlreadySubscribed    = errors.New("subscriber already has an active subscription")
	ErrNoActiveSubscription = errors.New("subscriber has no active subscription")

	ErrInvalidTrialDuration = errors.New("invalid trial duration")
	ErrTrialAlreadyUsed     = errors.New("subscriber already trialed this plan")

	ErrInvalidSubscriptionState = errors.New("invalid subscription state for this operation")

	ErrSamePlan             = errors.New("subscription already uses this plan and pricing")
	ErrPlanChangeNotAllowed = errors.New("plan change is not allowed during trial")
	ErrDowngradeNotAllowed  = errors.New("plan downgrades are disabled")
	ErrDowngradeNotPossible = errors.New("downgrade not possible with current usage")

	ErrFailedToLoadPlans = errors.New("failed to load subscription plans")
	ErrStoreFailure      = errors.New("subscription store operation failed")
	ErrFailedToLock      = errors.New("failed to serialize subscription operation")
)
