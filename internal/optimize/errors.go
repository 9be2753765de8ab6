package optimize

import "errors"

// Sentinel kinds for optimizer setup errors. Failing to improve on the
// baseline is a result, not an error.
var (
	ErrInvalidBounds = errors.New("invalid bounds")
	ErrNoMethods     = errors.New("no optimizer methods selected")
	ErrUnknownMethod = errors.New("unknown optimizer method")
)
