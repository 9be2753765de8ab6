package optimize

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/pkg/metrics"
)

// stopReason explains why a method ended.
type stopReason string

const (
	stopCompleted  stopReason = "completed"
	stopConverged  stopReason = "converged"
	stopEvalBudget stopReason = "evaluation budget exhausted"
	stopTimeBudget stopReason = "time budget exhausted"
	stopCancelled  stopReason = "cancelled"
)

// run is the per-method accumulator threaded through a search loop. Every
// method run owns one, so runs cannot observe each other's progress.
type run struct {
	method   string
	obj      Objective
	workers  int
	maxEvals int
	deadline time.Time
	metrics  *metrics.Manager

	evals      int
	iterations int
	best       scoring.Weights
	bestScore  float64
	hasBest    bool
}

func newRun(method string, obj Objective, s Settings, m *metrics.Manager, start time.Time) *run {
	r := &run{
		method:   method,
		obj:      obj,
		workers:  max(1, s.Workers),
		maxEvals: s.MaxEvaluations,
		metrics:  m,
	}
	if s.TimeBudget > 0 {
		r.deadline = start.Add(s.TimeBudget)
	}
	return r
}

// exhausted reports whether the run must stop before the next batch.
func (r *run) exhausted(ctx context.Context) (stopReason, bool) {
	switch {
	case ctx.Err() != nil:
		return stopCancelled, true
	case r.maxEvals > 0 && r.evals >= r.maxEvals:
		return stopEvalBudget, true
	case !r.deadline.IsZero() && time.Now().After(r.deadline):
		return stopTimeBudget, true
	}
	return "", false
}

// remaining returns how many evaluations are left, or n if unbounded.
func (r *run) remaining(n int) int {
	if r.maxEvals <= 0 {
		return n
	}
	return max(0, min(n, r.maxEvals-r.evals))
}

// evaluate scores points in parallel. Each result lands in its own slot and
// the best is updated in index order afterwards, so the outcome does not
// depend on goroutine scheduling.
func (r *run) evaluate(ctx context.Context, points []scoring.Weights) ([]float64, error) {
	scores := make([]float64, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			scores[i] = r.obj(points[i])
			r.metrics.RecordEvaluation(r.method, float64(time.Since(start).Microseconds())/1000)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.evals += len(points)
	for i, s := range scores {
		r.offer(points[i], s)
	}
	return scores, nil
}

// evaluateOne scores a single point on the calling goroutine.
func (r *run) evaluateOne(w scoring.Weights) float64 {
	start := time.Now()
	s := r.obj(w)
	r.metrics.RecordEvaluation(r.method, float64(time.Since(start).Microseconds())/1000)
	r.evals++
	r.offer(w, s)
	return s
}

func (r *run) offer(w scoring.Weights, s float64) {
	if !r.hasBest || s > r.bestScore {
		r.best = slices.Clone(w)
		r.bestScore = s
		r.hasBest = true
		r.metrics.UpdateBestObjective(r.method, s)
	}
}

func (r *run) iterate() {
	r.iterations++
	r.metrics.RecordIteration(r.method)
}
