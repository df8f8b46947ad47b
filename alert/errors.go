package alert

import "errors"

// ErrInvalidThreshold is returned when the ML threshold is outside [0, 1].
var ErrInvalidThreshold = errors.New("ml threshold must be within [0, 1]")
