package optimize

import (
	"context"
	"math"
	"math/rand"
	"slices"

	"github.com/okian/matchtune/internal/domain/scoring"
)

// differentialEvolution runs DE/rand/1/bin. The start point seeds the first
// population member so the search never ends below it. Trials are built
// sequentially from rng and evaluated as one parallel batch per generation.
func differentialEvolution(ctx context.Context, r *run, rng *rand.Rand, bounds Bounds, start scoring.Weights, s Settings) stopReason {
	np := max(4, s.Population)
	dim := len(bounds)

	pop := make([]scoring.Weights, np)
	pop[0] = bounds.Clip(start)
	for i := 1; i < np; i++ {
		pop[i] = bounds.Sample(rng)
	}
	if reason, done := r.exhausted(ctx); done {
		return reason
	}
	n := r.remaining(np)
	scores, err := r.evaluate(ctx, pop[:n])
	if err != nil {
		return stopCancelled
	}
	// Members cut off by the evaluation cap are never selected over a trial.
	fit := make([]float64, np)
	for i := range fit {
		fit[i] = math.Inf(-1)
	}
	copy(fit, scores)

	for gen := 0; gen < s.Generations; gen++ {
		if reason, done := r.exhausted(ctx); done {
			return reason
		}
		if converged(fit, s.Tolerance) {
			return stopConverged
		}

		n = r.remaining(np)
		trials := make([]scoring.Weights, n)
		for i := 0; i < n; i++ {
			a, b, c := pickThree(rng, np, i)
			jrand := rng.Intn(dim)
			trial := slices.Clone(pop[i])
			for j := 0; j < dim; j++ {
				if j == jrand || rng.Float64() < s.Crossover {
					trial[j] = pop[a][j] + s.Mutation*(pop[b][j]-pop[c][j])
				}
			}
			trials[i] = bounds.Clip(trial)
		}

		scores, err := r.evaluate(ctx, trials)
		if err != nil {
			return stopCancelled
		}
		for i, sc := range scores {
			// >= lets the population drift across flat regions.
			if sc >= fit[i] {
				pop[i] = trials[i]
				fit[i] = sc
			}
		}
		r.iterate()
	}
	return stopCompleted
}

// pickThree returns three distinct indexes in [0,n) all different from skip.
func pickThree(rng *rand.Rand, n, skip int) (int, int, int) {
	pick := func(exclude ...int) int {
		for {
			k := rng.Intn(n)
			if !slices.Contains(exclude, k) {
				return k
			}
		}
	}
	a := pick(skip)
	b := pick(skip, a)
	c := pick(skip, a, b)
	return a, b, c
}

// converged reports whether population fitness has collapsed to a spread
// within tol, relative to its mean.
func converged(fit []float64, tol float64) bool {
	if tol <= 0 || len(fit) == 0 {
		return false
	}
	var mean float64
	for _, f := range fit {
		mean += f
	}
	mean /= float64(len(fit))
	var variance float64
	for _, f := range fit {
		variance += (f - mean) * (f - mean)
	}
	std := math.Sqrt(variance / float64(len(fit)))
	return std <= tol*(1+math.Abs(mean))
}
