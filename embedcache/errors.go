package embedcache

import "errors"

var (
	// ErrStoreRequired is returned when a cache is built without a store.
	ErrStoreRequired = errors.New("cache store required")

	// ErrInvalidDimensions is returned for a non-positive dimension option.
	ErrInvalidDimensions = errors.New("dimensions must be positive")
)
