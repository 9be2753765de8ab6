package optimize

import (
	"context"
	"math/rand"

	"github.com/okian/matchtune/internal/domain/scoring"
)

// randomBatch is how many samples are drawn between budget checks.
const randomBatch = 64

// randomSearch samples the box uniformly. All points are drawn from rng
// before their batch is evaluated, so results do not depend on Workers.
func randomSearch(ctx context.Context, r *run, rng *rand.Rand, bounds Bounds, s Settings) stopReason {
	left := s.Samples
	for left > 0 {
		if reason, done := r.exhausted(ctx); done {
			return reason
		}
		n := r.remaining(min(left, randomBatch))
		batch := make([]scoring.Weights, n)
		for i := range batch {
			batch[i] = bounds.Sample(rng)
		}
		if _, err := r.evaluate(ctx, batch); err != nil {
			return stopCancelled
		}
		left -= n
		r.iterate()
	}
	return stopCompleted
}
