package config

import "errors"

var (
	// ErrParsingConfig wraps failures from parsing environment variables into a struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrNilPointer is returned when Load receives a nil destination.
	ErrNilPointer = errors.New("config destination must be a non-nil pointer")

	// ErrEnvFileLoad wraps failures from reading a .env file.
	ErrEnvFileLoad = errors.New("failed to load env file")
)
