package mlmodel

import "errors"

var (
	// ErrInvalidModel is returned when a weights file is malformed or inconsistent.
	ErrInvalidModel = errors.New("invalid model")
)
