package app

import "errors"

// ErrNoGroundTruth means no profile has labelled matches, so NDCG is 0 for
// every weight vector and there is nothing to optimise against.
var ErrNoGroundTruth = errors.New("no ground truth available")
