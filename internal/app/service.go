// Package app wires configuration, data loading, evaluation, optimisation
// and reporting into the operations the command line exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/matchtune/internal/config"
	"github.com/okian/matchtune/internal/dataset"
	"github.com/okian/matchtune/internal/domain/evaluation"
	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/internal/domain/ranking"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/internal/groundtruth"
	"github.com/okian/matchtune/internal/optimize"
	"github.com/okian/matchtune/internal/report"
	"github.com/okian/matchtune/internal/synth"
	"github.com/okian/matchtune/pkg/logger"
	"github.com/okian/matchtune/pkg/metrics"
)

// Output file names written by Generate.
const (
	PropertiesFile = "synthetic_properties.json"
	ProfilesFile   = "ground_truth_profiles.json"
)

// Dataset is everything one run reads from disk.
type Dataset struct {
	Properties  []model.Property
	Profiles    []model.Profile
	GroundTruth model.GroundTruth
}

// Service runs matchtune operations against one configuration.
type Service struct {
	cfg     *config.Config
	store   *dataset.Store
	metrics *metrics.Manager
	out     io.Writer
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithOutput sets where human summaries are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.out = w
		}
	}
}

// New constructs a Service. Without WithConfig the defaults are used.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:     config.New(),
		metrics: metrics.Global(),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("app")
	}
	s.store = dataset.New(dataset.WithMetrics(s.metrics))
	return s
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Load reads the three input files. A missing ground truth file is logged
// and yields an empty ground truth.
func (s *Service) Load(ctx context.Context) (Dataset, error) {
	ds, err := s.LoadCatalog(ctx)
	if err != nil {
		return ds, err
	}
	ds.GroundTruth, err = s.store.LoadGroundTruth(s.cfg.Data.GroundTruth)
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		s.logger.Warn(ctx, "ground truth file not found; every profile scores 0",
			logger.String("path", s.cfg.Data.GroundTruth))
		ds.GroundTruth = model.GroundTruth{}
	case err != nil:
		return ds, err
	}
	s.logger.Info(ctx, "ground truth loaded", logger.Int("labelled_profiles", len(ds.GroundTruth)))
	return ds, nil
}

// Weights returns the configured baseline weights.
func (s *Service) Weights() (scoring.Weights, error) {
	return scoring.WeightsFromMap(s.cfg.Weights)
}

// Evaluator builds the evaluator the configuration describes.
func (s *Service) Evaluator() (*evaluation.Evaluator, error) {
	rel, err := evaluation.ParseRelevance(s.cfg.Evaluation.Relevance)
	if err != nil {
		return nil, err
	}
	policy, err := evaluation.ParsePolicy(s.cfg.Evaluation.EmptyPolicy)
	if err != nil {
		return nil, err
	}
	f := s.cfg.Features
	extractor := features.New(
		features.WithSizeBands(f.SizeFullBand, f.SizeZeroBand),
		features.WithPriceTolerance(f.PriceTolerance),
		features.WithTypeAffinity(f.TypeAffinity),
	)
	ranker := ranking.New(scoring.NewScorer(scoring.WithExtractor(extractor)))
	return evaluation.NewEvaluator(
		evaluation.WithK(s.cfg.Evaluation.K),
		evaluation.WithRelevance(s.cfg.Evaluation.Relevance, rel),
		evaluation.WithPolicy(policy),
		evaluation.WithRanker(ranker),
		evaluation.WithReportDepth(s.cfg.Evaluation.TopN),
	), nil
}

// prepare validates ds and logs preparation warnings.
func (s *Service) prepare(ctx context.Context, ds Dataset) (*evaluation.Prepared, error) {
	ev, err := s.Evaluator()
	if err != nil {
		return nil, err
	}
	prep, err := ev.Prepare(ds.Properties, ds.Profiles, ds.GroundTruth)
	if err != nil {
		return nil, err
	}
	for _, w := range prep.Warnings() {
		s.logger.Warn(ctx, w)
	}
	return prep, nil
}

// Evaluate scores the configured weights. With no labelled profile the
// result has mean 0 and ErrNoGroundTruth is returned alongside it.
func (s *Service) Evaluate(ctx context.Context, ds Dataset) (evaluation.Result, []string, error) {
	w, err := s.Weights()
	if err != nil {
		return evaluation.Result{}, nil, err
	}
	prep, err := s.prepare(ctx, ds)
	if err != nil {
		return evaluation.Result{}, nil, err
	}
	res, err := prep.Evaluate(w)
	if err != nil {
		return evaluation.Result{}, nil, err
	}
	s.publish(res)
	s.logger.Info(ctx, "weights evaluated",
		logger.String("weights", w.String()),
		logger.Float64("ndcg", res.Mean),
		logger.Int("evaluated", res.Evaluated))
	if prep.Labelled() == 0 {
		s.logger.Warn(ctx, "no profile has ground truth; NDCG is 0")
		return res, prep.Warnings(), ErrNoGroundTruth
	}
	return res, prep.Warnings(), nil
}

// Optimize tunes the weights and returns the run report.
func (s *Service) Optimize(ctx context.Context, ds Dataset) (report.Document, error) {
	base, err := s.Weights()
	if err != nil {
		return report.Document{}, err
	}
	prep, err := s.prepare(ctx, ds)
	if err != nil {
		return report.Document{}, err
	}
	if prep.Labelled() == 0 {
		s.logger.Warn(ctx, "no profile has ground truth; NDCG is 0 for every weight vector")
		return report.Document{}, ErrNoGroundTruth
	}

	o := s.cfg.Optimizer
	opt := optimize.New(
		optimize.WithSettings(optimize.Settings{
			Seed:              o.Seed,
			Population:        o.Population,
			Generations:       o.Generations,
			Mutation:          o.Mutation,
			Crossover:         o.Crossover,
			Tolerance:         o.Tolerance,
			Samples:           o.Samples,
			SimplexIterations: o.SimplexIterations,
			SimplexStep:       o.SimplexStep,
			MaxEvaluations:    o.MaxEvaluations,
			TimeBudget:        o.TimeBudget,
			Workers:           o.Workers,
		}),
		optimize.WithMethods(o.Methods...),
		optimize.WithLogger(s.logger.Named("optimizer")),
		optimize.WithMetrics(s.metrics),
	)
	run, err := opt.Optimize(ctx, prep.Objective, optimize.UniformBounds(o.LowerBound, o.UpperBound), base)
	if err != nil {
		return report.Document{}, err
	}

	before, err := prep.Evaluate(run.Baseline)
	if err != nil {
		return report.Document{}, err
	}
	after, err := prep.Evaluate(run.Best)
	if err != nil {
		return report.Document{}, err
	}
	s.publish(after)
	doc := report.Build(run, before, after, prep.Warnings())

	if err := s.writeOutputs(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// Summarize prints the human summary of doc.
func (s *Service) Summarize(doc report.Document) error {
	return report.WriteText(s.out, doc)
}

func (s *Service) writeOutputs(ctx context.Context, doc report.Document) error {
	if path := s.cfg.Report.Path; path != "" {
		format, err := report.ParseFormat(s.cfg.Report.Format)
		if err != nil {
			return err
		}
		if err := report.Save(path, doc, format); err != nil {
			return err
		}
		s.logger.Info(ctx, "report written", logger.String("path", path), logger.String("format", string(format)))
	}
	return s.writeMetrics(ctx)
}

func (s *Service) writeMetrics(ctx context.Context) error {
	path := s.cfg.Report.MetricsPath
	if path == "" {
		return nil
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		return err
	}
	s.logger.Info(ctx, "metrics written", logger.String("path", path))
	return nil
}

func (s *Service) publish(res evaluation.Result) {
	s.metrics.UpdateMeanNDCG(res.Mean)
	for _, p := range res.Profiles {
		if p.Included {
			s.metrics.UpdateProfileNDCG(p.ProfileID, p.NDCG)
		}
	}
}

// Label generates rule-based ground truth for ds and writes it to the
// configured output.
func (s *Service) Label(ctx context.Context, ds Dataset) (model.GroundTruth, error) {
	gen, err := groundtruth.New(s.cfg.Labels.Rule,
		groundtruth.WithPerProfile(s.cfg.Labels.PerProfile),
		groundtruth.WithLogger(s.logger.Named("groundtruth")),
	)
	if err != nil {
		return nil, err
	}
	gt, err := gen.Generate(ctx, ds.Properties, ds.Profiles)
	if err != nil {
		return nil, err
	}
	if err := s.store.WriteGroundTruth(s.cfg.Labels.Output, gt); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "ground truth written",
		logger.String("path", s.cfg.Labels.Output),
		logger.Int("profiles", len(gt)))
	return gt, nil
}

// LoadCatalog reads properties and profiles only, for labelling.
func (s *Service) LoadCatalog(ctx context.Context) (Dataset, error) {
	var ds Dataset
	var err error
	if ds.Properties, err = s.store.LoadProperties(s.cfg.Data.Properties); err != nil {
		return ds, err
	}
	if ds.Profiles, err = s.store.LoadProfiles(s.cfg.Data.Profiles); err != nil {
		return ds, err
	}
	s.logger.Info(ctx, "catalog loaded",
		logger.Int("properties", len(ds.Properties)),
		logger.Int("profiles", len(ds.Profiles)))
	return ds, nil
}

// Generate writes a synthetic catalog and profiles into the configured
// output directory and returns the written paths.
func (s *Service) Generate(ctx context.Context) (string, string, error) {
	c := s.cfg.Synth
	gen := synth.New(synth.WithSeed(c.Seed), synth.WithLogger(s.logger.Named("synth")))
	listings := gen.Listings(ctx, c.Properties)
	profiles := gen.Profiles(ctx, c.Profiles)

	propsPath := filepath.Join(c.OutputDir, PropertiesFile)
	profilesPath := filepath.Join(c.OutputDir, ProfilesFile)
	if err := dataset.WriteJSON(propsPath, listings); err != nil {
		return "", "", fmt.Errorf("properties: %w", err)
	}
	if err := dataset.WriteJSON(profilesPath, synth.ProfileFile{Profiles: profiles}); err != nil {
		return "", "", fmt.Errorf("profiles: %w", err)
	}
	s.logger.Info(ctx, "synthetic data written",
		logger.String("properties", propsPath),
		logger.String("profiles", profilesPath))
	return propsPath, profilesPath, nil
}
