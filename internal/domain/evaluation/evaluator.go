package evaluation

import (
	"fmt"
	"strings"

	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/internal/domain/ranking"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/internal/domain/types"
)

// Policy decides how profiles without ground truth enter the mean.
type Policy string

const (
	// PolicyExclude leaves such profiles out of the mean.
	PolicyExclude Policy = "exclude"
	// PolicyZero counts such profiles as NDCG 0.
	PolicyZero Policy = "zero"
)

// ParsePolicy resolves a policy by name; empty means PolicyExclude.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(name))) {
	case "", PolicyExclude:
		return PolicyExclude, nil
	case PolicyZero:
		return PolicyZero, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithK sets the NDCG cutoff.
func WithK(k int) Option {
	return func(e *Evaluator) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithRelevance sets the relevance function and the name reported for it.
func WithRelevance(name string, fn RelevanceFunc) Option {
	return func(e *Evaluator) {
		if fn != nil {
			e.relevance = fn
			e.relevanceName = name
		}
	}
}

// WithPolicy sets the empty ground truth policy.
func WithPolicy(p Policy) Option {
	return func(e *Evaluator) {
		if p == PolicyExclude || p == PolicyZero {
			e.policy = p
		}
	}
}

// WithRanker sets the ranker used to order the catalog.
func WithRanker(r *ranking.Ranker) Option {
	return func(e *Evaluator) {
		if r != nil {
			e.ranker = r
		}
	}
}

// WithReportDepth sets how many ranked entries each ProfileResult keeps.
func WithReportDepth(n int) Option {
	return func(e *Evaluator) {
		if n >= 0 {
			e.reportDepth = n
		}
	}
}

// Evaluator computes mean NDCG@k over a set of profiles.
type Evaluator struct {
	ranker        *ranking.Ranker
	k             int
	relevance     RelevanceFunc
	relevanceName string
	policy        Policy
	reportDepth   int
}

// NewEvaluator creates an evaluator: k=10, linear relevance, exclude policy.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		ranker:        ranking.New(nil),
		k:             DefaultK,
		relevance:     LinearRelevance,
		relevanceName: RelevanceLinear,
		policy:        PolicyExclude,
		reportDepth:   DefaultK,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// K returns the cutoff.
func (e *Evaluator) K() int { return e.k }

// Policy returns the empty ground truth policy.
func (e *Evaluator) Policy() Policy { return e.policy }

// RelevanceName returns the configured relevance function name.
func (e *Evaluator) RelevanceName() string { return e.relevanceName }

// ProfileResult is the outcome for one profile.
type ProfileResult struct {
	ProfileID string        `json:"profile_id" yaml:"profile_id"`
	NDCG      float64       `json:"ndcg" yaml:"ndcg"`
	Labelled  int           `json:"labelled" yaml:"labelled"`
	Included  bool          `json:"included" yaml:"included"`
	Top       []types.Entry `json:"top,omitempty" yaml:"top,omitempty"`
}

// Result is the outcome over all profiles.
type Result struct {
	Mean      float64         `json:"mean" yaml:"mean"`
	K         int             `json:"k" yaml:"k"`
	Policy    Policy          `json:"policy" yaml:"policy"`
	Relevance string          `json:"relevance" yaml:"relevance"`
	Evaluated int             `json:"evaluated" yaml:"evaluated"`
	Profiles  []ProfileResult `json:"profiles" yaml:"profiles"`
}

// Evaluate ranks the catalog for every profile with w and returns mean
// NDCG@k. Profiles are visited in input order.
func (e *Evaluator) Evaluate(w scoring.Weights, props []model.Property, profiles []model.Profile, gt model.GroundTruth) (Result, error) {
	prep, err := e.Prepare(props, profiles, gt)
	if err != nil {
		return Result{}, err
	}
	return prep.Evaluate(w)
}

// Evaluate scores w with the default evaluator and returns the mean.
func Evaluate(w scoring.Weights, props []model.Property, profiles []model.Profile, gt model.GroundTruth) (float64, error) {
	res, err := NewEvaluator().Evaluate(w, props, profiles, gt)
	if err != nil {
		return 0, err
	}
	return res.Mean, nil
}

// Prepared caches everything about a dataset that does not depend on the
// weights. It is read-only after Prepare, so Objective may be called from
// many goroutines at once.
type Prepared struct {
	eval     *Evaluator
	props    []model.Property
	profiles []preparedProfile
	warnings []string
}

type preparedProfile struct {
	id    string
	ideal []int64
	vecs  []features.Vector
}

// Prepare validates the inputs and precomputes feature vectors.
func (e *Evaluator) Prepare(props []model.Property, profiles []model.Profile, gt model.GroundTruth) (*Prepared, error) {
	if err := model.ValidateProperties(props); err != nil {
		return nil, err
	}
	if err := model.ValidateProfiles(profiles); err != nil {
		return nil, err
	}
	if err := gt.Validate(); err != nil {
		return nil, err
	}

	p := &Prepared{eval: e, props: props, profiles: make([]preparedProfile, len(profiles))}
	known := make(map[string]struct{}, len(profiles))
	catalog := make(map[int64]struct{}, len(props))
	for i := range props {
		catalog[props[i].ID] = struct{}{}
	}

	for i := range profiles {
		prof := &profiles[i]
		known[prof.ID] = struct{}{}
		ideal := gt.Ordered(prof.ID)
		for _, id := range ideal {
			if _, ok := catalog[id]; !ok {
				p.warnings = append(p.warnings, fmt.Sprintf("ground truth %s references property %d missing from the catalog", prof.ID, id))
			}
		}
		pp := preparedProfile{id: prof.ID, ideal: ideal}
		if len(ideal) > 0 {
			pp.vecs = e.ranker.Features(props, prof)
		}
		p.profiles[i] = pp
	}
	for _, id := range gt.ProfileIDs() {
		if _, ok := known[id]; !ok {
			p.warnings = append(p.warnings, fmt.Sprintf("ground truth for unknown profile %s ignored", id))
		}
	}
	return p, nil
}

// Warnings lists non-fatal inconsistencies found while preparing.
func (p *Prepared) Warnings() []string { return p.warnings }

// Labelled returns how many profiles have at least one ground truth match.
func (p *Prepared) Labelled() int {
	n := 0
	for _, pp := range p.profiles {
		if len(pp.ideal) > 0 {
			n++
		}
	}
	return n
}

// Objective returns mean NDCG@k for w. Invalid weights score 0.
func (p *Prepared) Objective(w scoring.Weights) float64 {
	if w.Validate() != nil {
		return 0
	}
	var sum float64
	var n int
	for i := range p.profiles {
		pp := &p.profiles[i]
		if len(pp.ideal) == 0 {
			if p.eval.policy == PolicyZero {
				n++
			}
			continue
		}
		sum += p.ndcg(pp, w, p.eval.k)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Evaluate is Objective with per-profile detail.
func (p *Prepared) Evaluate(w scoring.Weights) (Result, error) {
	if err := w.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{
		K:         p.eval.k,
		Policy:    p.eval.policy,
		Relevance: p.eval.relevanceName,
		Profiles:  make([]ProfileResult, 0, len(p.profiles)),
	}
	var sum float64
	for i := range p.profiles {
		pp := &p.profiles[i]
		pr := ProfileResult{ProfileID: pp.id, Labelled: len(pp.ideal)}
		if len(pp.ideal) == 0 {
			pr.Included = p.eval.policy == PolicyZero
		} else {
			entries := ranking.RankPrecomputed(p.props, pp.vecs, w, max(p.eval.k, p.eval.reportDepth))
			pr.NDCG = NDCGAtK(types.IDs(entries), pp.ideal, p.eval.k, p.eval.relevance)
			pr.Included = true
			if p.eval.reportDepth > 0 {
				pr.Top = entries[:min(len(entries), p.eval.reportDepth)]
			}
		}
		if pr.Included {
			sum += pr.NDCG
			res.Evaluated++
		}
		res.Profiles = append(res.Profiles, pr)
	}
	if res.Evaluated > 0 {
		res.Mean = sum / float64(res.Evaluated)
	}
	return res, nil
}

func (p *Prepared) ndcg(pp *preparedProfile, w scoring.Weights, k int) float64 {
	entries := ranking.RankPrecomputed(p.props, pp.vecs, w, k)
	return NDCGAtK(types.IDs(entries), pp.ideal, k, p.eval.relevance)
}
