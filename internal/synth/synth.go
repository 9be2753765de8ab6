// Package synth generates reproducible synthetic catalogs and search
// profiles in the catalog export format.
package synth

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/pkg/logger"
)

// Defaults for generated data.
const (
	DefaultSeed       = 42
	DefaultProperties = 500
	DefaultProfiles   = 10

	priceJitter = 5000
	priceFloor  = 10000
)

// Types and Cities are the categorical values drawn from.
//
//nolint:gochecknoglobals // fixed vocabulary
var (
	Types  = []string{"kontor", "butik", "lager"}
	Cities = []string{"Stockholm", "Göteborg", "Malmö"}
)

// span is an inclusive integer range.
type span struct{ lo, hi int }

func (s span) draw(rng *rand.Rand) int { return s.lo + rng.Intn(s.hi-s.lo+1) }

type typeRanges struct {
	size  span
	price span
}

var ranges = map[string]typeRanges{ //nolint:gochecknoglobals // fixed vocabulary
	"kontor": {size: span{50, 500}, price: span{20000, 150000}},
	"butik":  {size: span{30, 300}, price: span{15000, 120000}},
	"lager":  {size: span{100, 2000}, price: span{10000, 100000}},
}

// Listing is a property in the catalog export format: size under
// square_meters and the monthly price as a string.
type Listing struct {
	ID            int64  `json:"id"`
	PropertyType  string `json:"property_type"`
	City          string `json:"city"`
	SquareMeters  int    `json:"square_meters"`
	PricePerMonth string `json:"price_per_month"`
}

// Property converts the listing to the canonical record.
func (l Listing) Property() (model.Property, error) {
	price, err := model.ParseAmount(l.PricePerMonth)
	if err != nil {
		return model.Property{}, err
	}
	return model.Property{
		ID:           l.ID,
		PropertyType: l.PropertyType,
		City:         l.City,
		Size:         float64(l.SquareMeters),
		Price:        price,
	}, nil
}

// ProfileBody is the nested part of an exported profile.
type ProfileBody struct {
	PropertyType string `json:"property_type"`
	City         string `json:"city"`
	SquareMeters int    `json:"square_meters"`
	MaxPrice     int    `json:"max_price"`
}

// ProfileRecord is a profile in the wrapped export format.
type ProfileRecord struct {
	ProfileID string      `json:"profile_id"`
	Profile   ProfileBody `json:"profile"`
}

// ProfileFile is the on-disk envelope for profiles.
type ProfileFile struct {
	Profiles []ProfileRecord `json:"profiles"`
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the random seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// Generator draws listings and profiles from one seeded source. Two
// generators with the same seed and the same call order produce identical
// data.
type Generator struct {
	seed int64
	rng  *rand.Rand
	log  logger.Logger
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{seed: DefaultSeed}
	for _, opt := range opts {
		opt(g)
	}
	g.rng = rand.New(rand.NewSource(g.seed)) //nolint:gosec // reproducible test data
	if g.log == nil {
		g.log = logger.Named("synth")
	}
	return g
}

// Listings generates n listings with ids 1..n.
func (g *Generator) Listings(ctx context.Context, n int) []Listing {
	out := make([]Listing, n)
	byType := make(map[string]int, len(Types))
	for i := range out {
		typ := Types[g.rng.Intn(len(Types))]
		city := Cities[g.rng.Intn(len(Cities))]
		r := ranges[typ]
		size := r.size.draw(g.rng)
		price := r.price.draw(g.rng) + span{-priceJitter, priceJitter}.draw(g.rng)
		out[i] = Listing{
			ID:            int64(i + 1),
			PropertyType:  typ,
			City:          city,
			SquareMeters:  size,
			PricePerMonth: strconv.Itoa(max(priceFloor, price)),
		}
		byType[typ]++
	}
	g.log.Info(ctx, "listings generated",
		logger.Int("count", n),
		logger.Any("by_type", byType),
		logger.Any("seed", g.seed))
	return out
}

// Profiles generates n profiles with ids profile_1..profile_n. Targets and
// budgets are drawn from the same per-type ranges as listings.
func (g *Generator) Profiles(ctx context.Context, n int) []ProfileRecord {
	out := make([]ProfileRecord, n)
	for i := range out {
		typ := Types[g.rng.Intn(len(Types))]
		city := Cities[g.rng.Intn(len(Cities))]
		r := ranges[typ]
		out[i] = ProfileRecord{
			ProfileID: fmt.Sprintf("profile_%d", i+1),
			Profile: ProfileBody{
				PropertyType: typ,
				City:         city,
				SquareMeters: r.size.draw(g.rng),
				MaxPrice:     r.price.draw(g.rng),
			},
		}
	}
	g.log.Info(ctx, "profiles generated", logger.Int("count", n))
	return out
}

// ToProperties converts listings to canonical records.
func ToProperties(listings []Listing) ([]model.Property, error) {
	out := make([]model.Property, len(listings))
	for i, l := range listings {
		p, err := l.Property()
		if err != nil {
			return nil, fmt.Errorf("listing %d: %w", l.ID, err)
		}
		out[i] = p
	}
	return out, nil
}

// ToProfiles converts exported profiles to canonical records.
func ToProfiles(records []ProfileRecord) []model.Profile {
	out := make([]model.Profile, len(records))
	for i, r := range records {
		out[i] = model.Profile{
			ID:           r.ProfileID,
			PropertyType: r.Profile.PropertyType,
			City:         r.Profile.City,
			Size:         float64(r.Profile.SquareMeters),
			Price:        float64(r.Profile.MaxPrice),
		}
	}
	return out
}
