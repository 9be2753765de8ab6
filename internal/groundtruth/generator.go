// Package groundtruth produces labelled matches from an independent,
// rule-based judgement of each property against each profile. The output
// serves as ground truth when no hand-labelled file exists.
//
// Eligibility is a CEL expression over two maps, `property` and `profile`,
// each with property_type, city, size and price. Type and city are lowercased
// and trimmed before evaluation so comparisons are case-insensitive.
package groundtruth

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/pkg/logger"
)

// DefaultPerProfile is how many matches are kept per profile.
const DefaultPerProfile = 5

// Size tiers for the quality score.
const (
	sizeTierBest = 0.10
	sizeTierGood = 0.20
)

// Option configures a Generator.
type Option func(*Generator)

// WithPerProfile sets how many matches are kept per profile.
func WithPerProfile(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.perProfile = n
		}
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

// Generator labels matches with a compiled eligibility rule.
type Generator struct {
	rule       string
	program    cel.Program
	perProfile int
	log        logger.Logger
}

// New compiles rule and returns a Generator. The rule must yield a bool.
func New(rule string, opts ...Option) (*Generator, error) {
	env, err := cel.NewEnv(
		cel.Variable("property", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("profile", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileRule, err)
	}
	ast, issues := env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileRule, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: rule yields %s, want bool", ErrCompileRule, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileRule, err)
	}

	g := &Generator{rule: rule, program: prg, perProfile: DefaultPerProfile}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Named("groundtruth")
	}
	return g, nil
}

// Eligible evaluates the rule for one pair.
func (g *Generator) Eligible(p *model.Property, prof *model.Profile) (bool, error) {
	out, _, err := g.program.Eval(map[string]any{
		"property": map[string]any{
			"id":            p.ID,
			"property_type": normalize(p.PropertyType),
			"city":          normalize(p.City),
			"size":          p.Size,
			"price":         p.Price,
		},
		"profile": map[string]any{
			"id":            prof.ID,
			"property_type": normalize(prof.PropertyType),
			"city":          normalize(prof.City),
			"size":          prof.Size,
			"price":         prof.Price,
		},
	})
	if err != nil {
		return false, fmt.Errorf("%w: property %d, profile %s: %w", ErrEvalRule, p.ID, prof.ID, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("%w: rule yielded %T, want bool", ErrEvalRule, out.Value())
	}
	return ok, nil
}

// Quality scores an eligible pair: a price component rewarding budget
// headroom plus a tiered size component.
func Quality(p *model.Property, prof *model.Profile) float64 {
	budget := math.Max(prof.Price, 1)
	var score float64
	if p.Price <= prof.Price {
		score += 100 + (prof.Price-p.Price)/budget*50
	} else {
		score += 50 - (p.Price-prof.Price)/budget*50
	}

	if prof.Size > 0 {
		ratio := math.Abs(p.Size-prof.Size) / prof.Size
		switch {
		case ratio <= sizeTierBest:
			score += 100
		case ratio <= sizeTierGood:
			score += 70
		default:
			score += 40 * (1 - ratio)
		}
	}
	return score
}

type candidate struct {
	id       int64
	score    float64
	sizeDiff float64
	price    float64
}

// Label returns up to perProfile matches for one profile, best first.
func (g *Generator) Label(props []model.Property, prof *model.Profile) ([]model.Match, error) {
	var cands []candidate
	for i := range props {
		p := &props[i]
		ok, err := g.Eligible(p, prof)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		cands = append(cands, candidate{
			id:       p.ID,
			score:    Quality(p, prof),
			sizeDiff: math.Abs(p.Size - prof.Size),
			price:    p.Price,
		})
	}
	slices.SortFunc(cands, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(b.score, a.score),
			cmp.Compare(a.sizeDiff, b.sizeDiff),
			cmp.Compare(a.price, b.price),
			cmp.Compare(a.id, b.id),
		)
	})
	n := min(len(cands), g.perProfile)
	matches := make([]model.Match, n)
	for i := 0; i < n; i++ {
		matches[i] = model.Match{PropertyID: cands[i].id, Rank: i + 1}
	}
	return matches, nil
}

// Generate labels every profile. Profiles without an eligible property are
// left out and logged.
func (g *Generator) Generate(ctx context.Context, props []model.Property, profiles []model.Profile) (model.GroundTruth, error) {
	gt := make(model.GroundTruth, len(profiles))
	for i := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prof := &profiles[i]
		matches, err := g.Label(props, prof)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			g.log.Warn(ctx, "no eligible properties", logger.String("profile", prof.ID))
			continue
		}
		gt[prof.ID] = matches
		g.log.Debug(ctx, "profile labelled",
			logger.String("profile", prof.ID),
			logger.Int("matches", len(matches)))
	}
	g.log.Info(ctx, "ground truth generated",
		logger.Int("profiles", len(profiles)),
		logger.Int("labelled", len(gt)))
	return gt, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
