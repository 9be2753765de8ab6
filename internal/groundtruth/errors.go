package groundtruth

import "errors"

// Sentinel kinds for rule handling.
var (
	ErrCompileRule = errors.New("compile eligibility rule")
	ErrEvalRule    = errors.New("evaluate eligibility rule")
)
