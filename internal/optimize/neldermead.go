package optimize

import (
	"context"
	"errors"
	"math"

	gonum "gonum.org/v1/gonum/optimize"

	"github.com/okian/matchtune/internal/domain/scoring"
)

// plateauIterations is how many simplex iterations may pass without the
// best score rising by more than the tolerance before the search stops.
const plateauIterations = 40

var errBudget = errors.New("evaluation budget exhausted")

// nelderMead maximises from start with gonum's simplex method on the negated
// objective. The initial simplex is built inside the box and scored as one
// parallel batch; later trial points are clipped to the box before scoring,
// so the reported weights always lie within bounds.
func nelderMead(ctx context.Context, r *run, bounds Bounds, start scoring.Weights, s Settings) stopReason {
	if reason, done := r.exhausted(ctx); done {
		return reason
	}
	vertices := initialSimplex(bounds, bounds.Clip(start), s.SimplexStep)
	n := r.remaining(len(vertices))
	scores, err := r.evaluate(ctx, vertices[:n])
	if err != nil {
		return stopCancelled
	}
	if n < len(vertices) {
		return stopEvalBudget
	}
	if s.SimplexIterations <= 0 {
		return stopCompleted
	}
	if reason, done := r.exhausted(ctx); done {
		return reason
	}

	values := make([]float64, len(scores))
	for i, sc := range scores {
		values[i] = -sc
	}
	problem := gonum.Problem{
		Func: func(x []float64) float64 {
			return -r.evaluateOne(bounds.Clip(x))
		},
		Status: func() (gonum.Status, error) {
			switch reason, done := r.exhausted(ctx); {
			case !done:
				return gonum.NotTerminated, nil
			case reason == stopCancelled:
				return gonum.Failure, ctx.Err()
			case reason == stopTimeBudget:
				return gonum.RuntimeLimit, nil
			default:
				return gonum.Failure, errBudget
			}
		},
	}
	settings := &gonum.Settings{
		InitValues:      &gonum.Location{F: values[0]},
		MajorIterations: s.SimplexIterations + 1,
		Converger: &iterationCounter{
			run:   r,
			inner: &gonum.FunctionConverge{Absolute: s.Tolerance, Iterations: plateauIterations},
		},
	}
	method := &gonum.NelderMead{
		InitialVertices: toFloats(vertices),
		InitialValues:   values,
	}

	res, err := gonum.Minimize(problem, vertices[0], settings, method)
	switch {
	case errors.Is(err, errBudget):
		return stopEvalBudget
	case ctx.Err() != nil:
		return stopCancelled
	case err != nil && res == nil:
		return stopCancelled
	}
	switch res.Status {
	case gonum.FunctionConvergence:
		return stopConverged
	case gonum.RuntimeLimit:
		return stopTimeBudget
	default:
		return stopCompleted
	}
}

// initialSimplex returns start plus one vertex per dimension, offset by step
// (5% of the interval when step <= 0) and turned inward at the upper bound.
func initialSimplex(bounds Bounds, start scoring.Weights, step float64) []scoring.Weights {
	vertices := []scoring.Weights{start}
	for i := range bounds {
		d := step
		if d <= 0 {
			d = 0.05 * bounds.width(i)
		}
		p := append(scoring.Weights(nil), start...)
		if p[i]+d <= bounds[i].Upper {
			p[i] += d
		} else {
			p[i] -= d
		}
		vertices = append(vertices, bounds.Clip(p))
	}
	return vertices
}

func toFloats(ws []scoring.Weights) [][]float64 {
	out := make([][]float64, len(ws))
	for i, w := range ws {
		out[i] = w
	}
	return out
}

// iterationCounter records every simplex iteration after the starting
// point and defers the stopping decision to inner.
type iterationCounter struct {
	run   *run
	inner gonum.Converger
	seen  bool
}

func (c *iterationCounter) Init(dim int) {
	c.seen = false
	c.inner.Init(dim)
}

func (c *iterationCounter) Converged(loc *gonum.Location) gonum.Status {
	if c.seen {
		c.run.iterate()
	}
	c.seen = true
	if math.IsNaN(loc.F) {
		return gonum.Failure
	}
	return c.inner.Converged(loc)
}
