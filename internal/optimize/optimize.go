// Package optimize searches weight space for the vector that maximises mean
// NDCG@k. A global gradient-free method explores the bounded box first and a
// local simplex search refines from the best point found so far.
package optimize

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/pkg/logger"
	"github.com/okian/matchtune/pkg/metrics"
)

// Method names.
const (
	MethodDifferentialEvolution = "differential_evolution"
	MethodRandomSearch          = "random_search"
	MethodNelderMead            = "nelder_mead"
)

// DefaultMethods is the order used when none are configured.
var DefaultMethods = []string{MethodDifferentialEvolution, MethodRandomSearch, MethodNelderMead}

// Objective maps a weight vector to a score to maximise. It must be safe for
// concurrent use and deterministic.
type Objective func(w scoring.Weights) float64

// Settings tunes the search methods.
type Settings struct {
	Seed int64

	Population  int
	Generations int
	Mutation    float64
	Crossover   float64
	Tolerance   float64

	Samples int

	SimplexIterations int
	SimplexStep       float64

	MaxEvaluations int
	TimeBudget     time.Duration
	Workers        int
}

// DefaultSettings returns the settings used by OptimizeWeights.
func DefaultSettings() Settings {
	return Settings{
		Seed:              42,
		Population:        20,
		Generations:       60,
		Mutation:          0.7,
		Crossover:         0.9,
		Tolerance:         1e-6,
		Samples:           400,
		SimplexIterations: 200,
		SimplexStep:       10,
		Workers:           4,
	}
}

// MethodResult describes one method run.
type MethodResult struct {
	Method      string          `json:"method" yaml:"method"`
	Start       scoring.Weights `json:"start,omitempty" yaml:"start,omitempty"`
	Weights     scoring.Weights `json:"weights" yaml:"weights"`
	Score       float64         `json:"score" yaml:"score"`
	Evaluations int             `json:"evaluations" yaml:"evaluations"`
	Iterations  int             `json:"iterations" yaml:"iterations"`
	Duration    time.Duration   `json:"duration" yaml:"duration"`
	Improved    bool            `json:"improved" yaml:"improved"`
	Stop        string          `json:"stop" yaml:"stop"`
}

// Report is the outcome of a full optimisation.
type Report struct {
	RunID         string          `json:"run_id" yaml:"run_id"`
	Seed          int64           `json:"seed" yaml:"seed"`
	Bounds        Bounds          `json:"bounds" yaml:"bounds"`
	Baseline      scoring.Weights `json:"baseline" yaml:"baseline"`
	BaselineScore float64         `json:"baseline_score" yaml:"baseline_score"`
	Best          scoring.Weights `json:"best" yaml:"best"`
	BestScore     float64         `json:"best_score" yaml:"best_score"`
	BestMethod    string          `json:"best_method" yaml:"best_method"`
	Methods       []MethodResult  `json:"methods" yaml:"methods"`
	StartedAt     time.Time       `json:"started_at" yaml:"started_at"`
	Duration      time.Duration   `json:"duration" yaml:"duration"`
}

// Improved reports whether any method beat the baseline.
func (r Report) Improved() bool { return r.BestScore > r.BaselineScore }

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithSettings replaces the search settings.
func WithSettings(s Settings) Option {
	return func(o *Optimizer) {
		o.settings = s
	}
}

// WithSeed overrides the seed only.
func WithSeed(seed int64) Option {
	return func(o *Optimizer) {
		o.settings.Seed = seed
	}
}

// WithWorkers sets the candidate evaluation parallelism.
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.settings.Workers = n
		}
	}
}

// WithMethods sets the method order.
func WithMethods(methods ...string) Option {
	return func(o *Optimizer) {
		o.methods = slices.Clone(methods)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(o *Optimizer) {
		if m != nil {
			o.metrics = m
		}
	}
}

// Optimizer runs the configured methods in order.
type Optimizer struct {
	settings Settings
	methods  []string
	log      logger.Logger
	metrics  *metrics.Manager
}

// New creates an Optimizer.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		settings: DefaultSettings(),
		methods:  slices.Clone(DefaultMethods),
		metrics:  metrics.Global(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Named("optimizer")
	}
	return o
}

// Settings returns the active settings.
func (o *Optimizer) Settings() Settings { return o.settings }

// Optimize searches within bounds starting from baseline. Each method draws
// from its own generator seeded with Settings.Seed, so a method's output does
// not depend on which methods ran before it except through its start point.
func (o *Optimizer) Optimize(ctx context.Context, obj Objective, bounds Bounds, baseline scoring.Weights) (Report, error) {
	if err := bounds.Validate(); err != nil {
		return Report{}, err
	}
	if len(baseline) != features.Dimension {
		return Report{}, fmt.Errorf("%w: baseline has %d weights", scoring.ErrWeightDimension, len(baseline))
	}
	if len(o.methods) == 0 {
		return Report{}, ErrNoMethods
	}
	for _, m := range o.methods {
		if !knownMethod(m) {
			return Report{}, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
		}
	}

	started := time.Now()
	baseline = slices.Clone(baseline)
	baseScore := obj(baseline)
	rep := Report{
		RunID:         uuid.NewString(),
		Seed:          o.settings.Seed,
		Bounds:        bounds,
		Baseline:      baseline,
		BaselineScore: baseScore,
		Best:          baseline,
		BestScore:     baseScore,
		BestMethod:    "baseline",
		StartedAt:     started,
	}
	o.log.Info(ctx, "optimization started",
		logger.String("run_id", rep.RunID),
		logger.Any("seed", o.settings.Seed),
		logger.Any("methods", o.methods),
		logger.Float64("baseline_score", baseScore))

	for _, m := range o.methods {
		if ctx.Err() != nil {
			break
		}
		start := bounds.Clip(rep.Best)
		res := o.runMethod(ctx, m, obj, bounds, start, baseline, baseScore)
		rep.Methods = append(rep.Methods, res)
		o.metrics.RecordMethodRun(m, res.Improved)
		if res.Score > rep.BestScore {
			rep.Best = slices.Clone(res.Weights)
			rep.BestScore = res.Score
			rep.BestMethod = m
		}
		o.log.Info(ctx, "method finished",
			logger.String("method", m),
			logger.Float64("score", res.Score),
			logger.Int("evaluations", res.Evaluations),
			logger.Int("iterations", res.Iterations),
			logger.Bool("improved", res.Improved),
			logger.String("stop", res.Stop),
			logger.Duration("duration", res.Duration))
	}

	rep.Duration = time.Since(started)
	if !rep.Improved() {
		o.log.Warn(ctx, "no method improved on the baseline; keeping baseline weights",
			logger.Float64("baseline_score", baseScore))
	}
	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("optimization interrupted: %w", err)
	}
	return rep, nil
}

func (o *Optimizer) runMethod(ctx context.Context, method string, obj Objective, bounds Bounds, start, baseline scoring.Weights, baseScore float64) MethodResult {
	began := time.Now()
	r := newRun(method, obj, o.settings, o.metrics, began)
	rng := rand.New(rand.NewSource(o.settings.Seed)) //nolint:gosec // reproducible search, not security

	var stop stopReason
	switch method {
	case MethodDifferentialEvolution:
		stop = differentialEvolution(ctx, r, rng, bounds, start, o.settings)
	case MethodRandomSearch:
		stop = randomSearch(ctx, r, rng, bounds, o.settings)
	case MethodNelderMead:
		stop = nelderMead(ctx, r, bounds, start, o.settings)
	}

	res := MethodResult{
		Method:      method,
		Evaluations: r.evals,
		Iterations:  r.iterations,
		Duration:    time.Since(began),
		Stop:        string(stop),
	}
	if method == MethodNelderMead {
		res.Start = start
	}
	if r.hasBest && r.bestScore > baseScore {
		res.Weights = r.best
		res.Score = r.bestScore
		res.Improved = true
	} else {
		res.Weights = slices.Clone(baseline)
		res.Score = baseScore
	}
	return res
}

func knownMethod(m string) bool {
	return slices.Contains(DefaultMethods, m)
}
