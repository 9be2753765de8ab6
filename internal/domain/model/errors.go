package model

import "errors"

// Sentinel kinds for invalid input records. Returned errors wrap one of these
// together with the offending record id.
var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field value")
	ErrDuplicateID  = errors.New("duplicate id")
	ErrInvalidRank  = errors.New("invalid ground truth rank")
)
