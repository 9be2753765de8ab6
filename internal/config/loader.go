package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/matchtune/internal/domain/evaluation"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/internal/report"
)

// Environment variable names.
const (
	EnvPrefix     = "MATCHTUNE_"
	EnvConfigPath = "MATCHTUNE_CONFIG"
)

// listKeys are env keys holding comma-separated lists.
var listKeys = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup
	"optimizer.methods": {},
}

// SplitList splits a comma-separated list, dropping blank items.
func SplitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MATCHTUNE_CONFIG is set
//  3. env (prefix MATCHTUNE_, "__" separates nested keys)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvConfigPath))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// MATCHTUNE_OPTIMIZER__SEED -> optimizer.seed
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(key, EnvPrefix)
		if key == strings.TrimPrefix(EnvConfigPath, EnvPrefix) {
			return "", nil
		}
		key = strings.ReplaceAll(strings.ToLower(key), "__", ".")
		if _, ok := listKeys[key]; ok {
			return key, SplitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	// Lists replace the default instead of being merged into it.
	defaultMethods := cfg.Optimizer.Methods
	cfg.Optimizer.Methods = nil
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if len(cfg.Optimizer.Methods) == 0 {
		cfg.Optimizer.Methods = defaultMethods
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if _, err := scoring.WeightsFromMap(c.Weights); err != nil {
		return fmt.Errorf("%w: weights: %w", ErrInvalidConfig, err)
	}
	if _, err := evaluation.ParseRelevance(c.Evaluation.Relevance); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := evaluation.ParsePolicy(c.Evaluation.EmptyPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	f := c.Features
	if f.SizeFullBand <= 0 || f.SizeZeroBand <= f.SizeFullBand {
		return fmt.Errorf("%w: features: need 0 < size_full_band < size_zero_band", ErrInvalidConfig)
	}
	if f.PriceTolerance <= 0 {
		return fmt.Errorf("%w: features: price_tolerance must be positive", ErrInvalidConfig)
	}

	if c.Evaluation.K <= 0 {
		return fmt.Errorf("%w: evaluation.k must be positive", ErrInvalidConfig)
	}
	if c.Evaluation.TopN < 0 {
		return fmt.Errorf("%w: evaluation.top_n must not be negative", ErrInvalidConfig)
	}

	o := c.Optimizer
	if o.UpperBound <= o.LowerBound {
		return fmt.Errorf("%w: optimizer: upper_bound must exceed lower_bound", ErrInvalidConfig)
	}
	if len(o.Methods) == 0 {
		return fmt.Errorf("%w: optimizer.methods must not be empty", ErrInvalidConfig)
	}
	for _, m := range o.Methods {
		switch m {
		case MethodDifferentialEvolution, MethodRandomSearch, MethodNelderMead:
		default:
			return fmt.Errorf("%w: unknown optimizer method %q", ErrInvalidConfig, m)
		}
	}
	if o.Population < 4 {
		return fmt.Errorf("%w: optimizer.population must be at least 4", ErrInvalidConfig)
	}
	if o.Mutation <= 0 || o.Mutation > 2 {
		return fmt.Errorf("%w: optimizer.mutation must be in (0, 2]", ErrInvalidConfig)
	}
	if o.Crossover < 0 || o.Crossover > 1 {
		return fmt.Errorf("%w: optimizer.crossover must be in [0, 1]", ErrInvalidConfig)
	}
	if o.Generations < 0 || o.Samples < 0 || o.SimplexIterations < 0 || o.MaxEvaluations < 0 || o.TimeBudget < 0 {
		return fmt.Errorf("%w: optimizer budgets must not be negative", ErrInvalidConfig)
	}

	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		return fmt.Errorf("%w: report.format: %w", ErrInvalidConfig, err)
	}
	if c.Labels.PerProfile <= 0 {
		return fmt.Errorf("%w: labels.per_profile must be positive", ErrInvalidConfig)
	}
	if c.Synth.Properties < 0 || c.Synth.Profiles < 0 {
		return fmt.Errorf("%w: synth counts must not be negative", ErrInvalidConfig)
	}
	return nil
}
