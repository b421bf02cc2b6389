package sweep

import "errors"

var (
	ErrScanFailed    = errors.New("sweep scan query failed")
	ErrInvalidPeriod = errors.New("usage reset sweep needs a daily, monthly, or yearly period")
	ErrInvalidWindow = errors.New("expiry report window must be positive")

	ErrInvalidJob           = errors.New("sweep job needs a name, a schedule, and a function")
	ErrJobAlreadyRegistered = errors.New("sweep job already registered")
	ErrNoJobs               = errors.New("scheduler has no registered jobs")
)
