// Package scoring combines feature signals with a weight vector into a
// single match score.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/model"
)

// Base weights used before any tuning.
const (
	BasePropertyTypeWeight = 50
	BaseLocationWeight     = 30
	BaseSizeWeight         = 20
	BasePriceWeight        = 15
)

// Weights has one coefficient per feature, in features.Names order.
// Negative and zero values are legal.
type Weights []float64

// BaseWeights returns the untuned starting weights.
func BaseWeights() Weights {
	return Weights{BasePropertyTypeWeight, BaseLocationWeight, BaseSizeWeight, BasePriceWeight}
}

// Validate rejects vectors of the wrong length or with NaN/Inf entries.
func (w Weights) Validate() error {
	if len(w) != features.Dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrWeightDimension, len(w), features.Dimension)
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrNonFiniteWeight, features.Names[i], v)
		}
	}
	return nil
}

// Map returns the weights keyed by feature name.
func (w Weights) Map() map[string]float64 {
	out := make(map[string]float64, len(w))
	for i, v := range w {
		if i < features.Dimension {
			out[features.Names[i]] = v
		}
	}
	return out
}

// String renders the weights as name=value pairs.
func (w Weights) String() string {
	parts := make([]string, 0, len(w))
	for i, v := range w {
		name := fmt.Sprintf("w%d", i)
		if i < features.Dimension {
			name = features.Names[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%.4g", name, v))
	}
	return strings.Join(parts, " ")
}

// WeightsFromMap builds a vector from named weights. Every feature must be
// present and no unknown names are allowed.
func WeightsFromMap(m map[string]float64) (Weights, error) {
	w := make(Weights, features.Dimension)
	for i, name := range features.Names {
		v, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrWeightDimension, name)
		}
		w[i] = v
	}
	if len(m) != features.Dimension {
		for name := range m {
			if !isFeatureName(name) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownWeight, name)
			}
		}
	}
	return w, w.Validate()
}

func isFeatureName(name string) bool {
	for _, n := range features.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithExtractor sets the feature extractor.
func WithExtractor(e *features.Extractor) Option {
	return func(s *Scorer) {
		if e != nil {
			s.extractor = e
		}
	}
}

// Scorer computes weighted match scores.
type Scorer struct {
	extractor *features.Extractor
}

// NewScorer creates a scorer; without options it uses the default extractor.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{extractor: features.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extractor returns the feature extractor in use.
func (s *Scorer) Extractor() *features.Extractor { return s.extractor }

// Score returns sum(w[i] * feature_i(p, prof)).
func (s *Scorer) Score(p *model.Property, prof *model.Profile, w Weights) (float64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	return Combine(s.extractor.Extract(p, prof), w), nil
}

// Combine applies weights to a precomputed feature vector. The caller must
// have validated w; summation order is fixed so results are bit-for-bit
// reproducible.
func Combine(v features.Vector, w Weights) float64 {
	var score float64
	for i := range v {
		score += w[i] * v[i]
	}
	return score
}
