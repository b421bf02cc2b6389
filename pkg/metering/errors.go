package metering

import "errors"

var (
	ErrInvalidAmount           = errors.New("metering.errors.invalid_amount")
	ErrUsageNotFound           = errors.New("metering.errors.usage_not_found")
	ErrFailedToResolveFeatures = errors.New("metering.errors.failed_to_resolve_features")
	ErrFailedToResolveStatus   = errors.New("metering.errors.failed_to_resolve_status")
	ErrFailedToReadUsage       = errors.New("metering.errors.failed_to_read_usage")
	ErrFailedToSaveUsage       = errors.New("metering.errors.failed_to_save_usage")
	ErrFailedToResetUsage      = errors.New("metering.errors.failed_to_reset_usage")
	ErrFailedToAcquireLock     = errors.New("metering.errors.failed_to_acquire_lock")
)
