// Package features derives the four bounded match signals between a property
// and a search profile.
//
// Every signal lies in [0, 1]:
//
//	type:  1 on case-insensitive equality, else the affinity table value, else 0
//	city:  1 on case-insensitive equality, else 0
//	size:  r = |size-target|/target; 1 at r=0, 0.5 at r=SizeFullBand,
//	       0 at r>=SizeZeroBand, linear in between
//	price: 1 when price <= budget; otherwise 1 - over/PriceTolerance clamped
//	       at 0, with over = (price-budget)/budget
package features

import (
	"math"
	"strings"

	"github.com/okian/matchtune/internal/domain/model"
)

// Dimension is the number of signals the extractor produces.
const Dimension = 4

// Signal indexes, in output order.
const (
	PropertyType = iota
	Location
	Size
	Price
)

// Names are the external names of the signals in output order. They match
// the keys used for weights in configuration and reports.
var Names = [Dimension]string{"property_type", "location", "size", "price"} //nolint:gochecknoglobals // fixed table

// Default curve parameters.
const (
	DefaultSizeFullBand   = 0.15
	DefaultSizeZeroBand   = 0.30
	DefaultPriceTolerance = 0.10
	halfCredit            = 0.5
)

// Vector holds one value per signal.
type Vector [Dimension]float64

// Extractor computes feature vectors. The zero value is not usable; build
// one with New.
type Extractor struct {
	sizeFullBand   float64
	sizeZeroBand   float64
	priceTolerance float64
	affinity       map[[2]string]float64
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithSizeBands sets the relative deviations at which size fit reaches 0.5
// and 0. Ignored unless 0 < full < zero.
func WithSizeBands(full, zero float64) Option {
	return func(e *Extractor) {
		if full > 0 && zero > full {
			e.sizeFullBand = full
			e.sizeZeroBand = zero
		}
	}
}

// WithPriceTolerance sets the relative overshoot at which price fit hits 0.
func WithPriceTolerance(tolerance float64) Option {
	return func(e *Extractor) {
		if tolerance > 0 {
			e.priceTolerance = tolerance
		}
	}
}

// WithTypeAffinity grants partial credit between related property types.
// Keys are "a:b" pairs; the relation is symmetric and case-insensitive.
// Values are clamped to [0, 1].
func WithTypeAffinity(pairs map[string]float64) Option {
	return func(e *Extractor) {
		for key, v := range pairs {
			a, b, ok := strings.Cut(key, ":")
			if !ok {
				continue
			}
			v = clamp01(v)
			e.affinity[typeKey(a, b)] = v
			e.affinity[typeKey(b, a)] = v
		}
	}
}

// New creates an extractor with the default curves.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		sizeFullBand:   DefaultSizeFullBand,
		sizeZeroBand:   DefaultSizeZeroBand,
		priceTolerance: DefaultPriceTolerance,
		affinity:       make(map[[2]string]float64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the signals for one property/profile pair. It is total,
// deterministic and side-effect free.
func (e *Extractor) Extract(p *model.Property, prof *model.Profile) Vector {
	return Vector{
		PropertyType: e.TypeMatch(p.PropertyType, prof.PropertyType),
		Location:     CityMatch(p.City, prof.City),
		Size:         e.SizeFit(p.Size, prof.Size),
		Price:        e.PriceFit(p.Price, prof.Price),
	}
}

// TypeMatch scores property type agreement.
func (e *Extractor) TypeMatch(actual, desired string) float64 {
	a, d := normalize(actual), normalize(desired)
	if a == "" || d == "" {
		return 0
	}
	if a == d {
		return 1
	}
	return e.affinity[[2]string{a, d}]
}

// CityMatch scores city agreement.
func CityMatch(actual, desired string) float64 {
	a, d := normalize(actual), normalize(desired)
	if a != "" && a == d {
		return 1
	}
	return 0
}

// SizeFit scores how close size is to target.
func (e *Extractor) SizeFit(size, target float64) float64 {
	if !(target > 0) || math.IsNaN(size) {
		return 0
	}
	r := math.Abs(size-target) / target
	switch {
	case r <= e.sizeFullBand:
		return clamp01(1 - halfCredit*r/e.sizeFullBand)
	case r < e.sizeZeroBand:
		return clamp01(halfCredit * (e.sizeZeroBand - r) / (e.sizeZeroBand - e.sizeFullBand))
	default:
		return 0
	}
}

// PriceFit scores price against budget. Prices under budget are never
// penalized.
func (e *Extractor) PriceFit(price, budget float64) float64 {
	if !(budget > 0) || math.IsNaN(price) {
		return 0
	}
	if price <= budget {
		return 1
	}
	over := (price - budget) / budget
	return clamp01(1 - over/e.priceTolerance)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func typeKey(a, b string) [2]string {
	return [2]string{normalize(a), normalize(b)}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
