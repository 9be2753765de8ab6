package optimize

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/scoring"
)

// Interval is a closed range for one weight.
type Interval struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Bounds holds one interval per weight.
type Bounds []Interval

// UniformBounds gives every weight the same range.
func UniformBounds(lower, upper float64) Bounds {
	b := make(Bounds, features.Dimension)
	for i := range b {
		b[i] = Interval{Lower: lower, Upper: upper}
	}
	return b
}

// Validate checks dimension and that each interval is finite and non-empty.
func (b Bounds) Validate() error {
	if len(b) != features.Dimension {
		return fmt.Errorf("%w: got %d intervals, want %d", ErrInvalidBounds, len(b), features.Dimension)
	}
	for i, iv := range b {
		if math.IsNaN(iv.Lower) || math.IsNaN(iv.Upper) || math.IsInf(iv.Lower, 0) || math.IsInf(iv.Upper, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidBounds, features.Names[i])
		}
		if iv.Upper <= iv.Lower {
			return fmt.Errorf("%w: %s upper %v <= lower %v", ErrInvalidBounds, features.Names[i], iv.Upper, iv.Lower)
		}
	}
	return nil
}

// Clip returns a copy of w with every entry forced into its interval.
func (b Bounds) Clip(w scoring.Weights) scoring.Weights {
	out := make(scoring.Weights, len(w))
	for i, v := range w {
		out[i] = math.Min(math.Max(v, b[i].Lower), b[i].Upper)
	}
	return out
}

// Sample draws a uniform point.
func (b Bounds) Sample(rng *rand.Rand) scoring.Weights {
	w := make(scoring.Weights, len(b))
	for i, iv := range b {
		w[i] = iv.Lower + rng.Float64()*(iv.Upper-iv.Lower)
	}
	return w
}

// width returns the range of dimension i.
func (b Bounds) width(i int) float64 {
	return b[i].Upper - b[i].Lower
}
