package postgres

import "errors"

var (
	// ErrDSNRequired is returned when no connection string is configured.
	ErrDSNRequired = errors.New("database connection string required")

	// ErrInvalidVector is returned when a stored vector cannot be parsed.
	ErrInvalidVector = errors.New("invalid vector literal")
)
