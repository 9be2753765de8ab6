package evaluation

import "errors"

// Sentinel kinds for evaluation setup errors.
var (
	ErrUnknownRelevance = errors.New("unknown relevance function")
	ErrUnknownPolicy    = errors.New("unknown empty ground truth policy")
)
