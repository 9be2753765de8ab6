// Package config defines matchtune configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and MATCHTUNE_* env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
	"time"

	"github.com/okian/matchtune/internal/domain/evaluation"
	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/internal/optimize"
)

// Optimizer method names.
const (
	MethodDifferentialEvolution = optimize.MethodDifferentialEvolution
	MethodRandomSearch          = optimize.MethodRandomSearch
	MethodNelderMead            = optimize.MethodNelderMead
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	Data       DataConfig         `koanf:"data"`
	Weights    map[string]float64 `koanf:"weights"`
	Features   FeatureConfig      `koanf:"features"`
	Evaluation EvaluationConfig   `koanf:"evaluation"`
	Optimizer  OptimizerConfig    `koanf:"optimizer"`
	Report     ReportConfig       `koanf:"report"`
	Labels     LabelConfig        `koanf:"labels"`
	Synth      SynthConfig        `koanf:"synth"`
}

// DataConfig points at the JSON input files.
type DataConfig struct {
	Properties  string `koanf:"properties"`
	Profiles    string `koanf:"profiles"`
	GroundTruth string `koanf:"ground_truth"`
}

// FeatureConfig tunes the feature curves.
type FeatureConfig struct {
	SizeFullBand   float64            `koanf:"size_full_band"`
	SizeZeroBand   float64            `koanf:"size_zero_band"`
	PriceTolerance float64            `koanf:"price_tolerance"`
	TypeAffinity   map[string]float64 `koanf:"type_affinity"`
}

// EvaluationConfig controls NDCG evaluation.
type EvaluationConfig struct {
	K int `koanf:"k"`

	// TopN is how many ranked entries the report lists per profile; 0 lists none.
	TopN int `koanf:"top_n"`

	// Relevance is "linear" or "exponential".
	Relevance string `koanf:"relevance"`

	// EmptyPolicy is "exclude" or "zero" for profiles without ground truth.
	EmptyPolicy string `koanf:"empty_policy"`
}

// OptimizerConfig controls the weight search.
type OptimizerConfig struct {
	// Methods run in order; nelder_mead starts from the best point found so far.
	Methods []string `koanf:"methods"`
	Seed    int64    `koanf:"seed"`

	LowerBound float64 `koanf:"lower_bound"`
	UpperBound float64 `koanf:"upper_bound"`

	// Differential evolution.
	Population  int     `koanf:"population"`
	Generations int     `koanf:"generations"`
	Mutation    float64 `koanf:"mutation"`
	Crossover   float64 `koanf:"crossover"`
	Tolerance   float64 `koanf:"tolerance"`

	// Random search.
	Samples int `koanf:"samples"`

	// Nelder-Mead.
	SimplexIterations int     `koanf:"simplex_iterations"`
	SimplexStep       float64 `koanf:"simplex_step"`

	// MaxEvaluations caps objective calls per method; 0 means no cap.
	MaxEvaluations int `koanf:"max_evaluations"`

	// TimeBudget caps wall time per method; 0 means no cap.
	TimeBudget time.Duration `koanf:"time_budget"`

	// Workers evaluates candidates in parallel.
	Workers int `koanf:"workers"`
}

// ReportConfig controls result output.
type ReportConfig struct {
	// Path of the machine-readable report; empty disables it.
	Path string `koanf:"path"`

	// Format is json, yaml or toml.
	Format string `koanf:"format"`

	// MetricsPath receives a Prometheus textfile dump; empty disables it.
	MetricsPath string `koanf:"metrics_path"`
}

// LabelConfig drives the rule-based ground truth generator.
type LabelConfig struct {
	// Rule is a CEL expression over `property` and `profile` deciding eligibility.
	Rule       string `koanf:"rule"`
	PerProfile int    `koanf:"per_profile"`
	Output     string `koanf:"output"`
}

// SynthConfig drives the synthetic catalog generator.
type SynthConfig struct {
	Properties int    `koanf:"properties"`
	Profiles   int    `koanf:"profiles"`
	Seed       int64  `koanf:"seed"`
	OutputDir  string `koanf:"output_dir"`
}

// Defaults.
const (
	defaultPopulation        = 20
	defaultGenerations       = 60
	defaultMutation          = 0.7
	defaultCrossover         = 0.9
	defaultTolerance         = 1e-6
	defaultSamples           = 400
	defaultSimplexIterations = 200
	defaultSimplexStep       = 10
	defaultUpperBound        = 200
	defaultSeed              = 42
	defaultLabelsPerProfile  = 5
	defaultSynthProperties   = 500
	defaultSynthProfiles     = 10
)

// DefaultLabelRule mirrors the hand-labelling criteria: exact type and city,
// at most 10% over budget, size within 50% of target.
const DefaultLabelRule = `property.property_type == profile.property_type &&
property.city == profile.city &&
property.price <= profile.price * 1.10 &&
property.size >= profile.size * 0.5 &&
property.size <= profile.size * 1.5`

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Data: DataConfig{
			Properties:  "data/synthetic_properties.json",
			Profiles:    "data/ground_truth_profiles.json",
			GroundTruth: "data/my_ground_truth.json",
		},
		Weights: scoring.BaseWeights().Map(),
		Features: FeatureConfig{
			SizeFullBand:   features.DefaultSizeFullBand,
			SizeZeroBand:   features.DefaultSizeZeroBand,
			PriceTolerance: features.DefaultPriceTolerance,
			TypeAffinity:   map[string]float64{},
		},
		Evaluation: EvaluationConfig{
			K:           evaluation.DefaultK,
			TopN:        evaluation.DefaultK,
			Relevance:   evaluation.RelevanceLinear,
			EmptyPolicy: string(evaluation.PolicyExclude),
		},
		Optimizer: OptimizerConfig{
			Methods:           []string{MethodDifferentialEvolution, MethodRandomSearch, MethodNelderMead},
			Seed:              defaultSeed,
			LowerBound:        0,
			UpperBound:        defaultUpperBound,
			Population:        defaultPopulation,
			Generations:       defaultGenerations,
			Mutation:          defaultMutation,
			Crossover:         defaultCrossover,
			Tolerance:         defaultTolerance,
			Samples:           defaultSamples,
			SimplexIterations: defaultSimplexIterations,
			SimplexStep:       defaultSimplexStep,
			Workers:           runtime.NumCPU(),
		},
		Report: ReportConfig{
			Format: "json",
		},
		Labels: LabelConfig{
			Rule:       DefaultLabelRule,
			PerProfile: defaultLabelsPerProfile,
			Output:     "data/my_ground_truth.json",
		},
		Synth: SynthConfig{
			Properties: defaultSynthProperties,
			Profiles:   defaultSynthProfiles,
			Seed:       defaultSeed,
			OutputDir:  "data",
		},
	}
}
