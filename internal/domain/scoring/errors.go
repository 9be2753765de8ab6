package scoring

import "errors"

// Sentinel kinds for invalid weight vectors.
var (
	ErrWeightDimension = errors.New("weight vector has wrong dimension")
	ErrNonFiniteWeight = errors.New("weight is not finite")
	ErrUnknownWeight   = errors.New("unknown weight name")
)
