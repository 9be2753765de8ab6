// Package ranking orders a property catalog for one profile.
package ranking

import (
	"cmp"
	"slices"

	"github.com/okian/matchtune/internal/domain/features"
	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/internal/domain/scoring"
	"github.com/okian/matchtune/internal/domain/types"
)

// DefaultTopN covers the NDCG cutoff with room to spare.
const DefaultTopN = 50

// Ranker sorts properties by weighted score.
type Ranker struct {
	scorer *scoring.Scorer
}

// New creates a ranker using scorer; nil means the default scorer.
func New(scorer *scoring.Scorer) *Ranker {
	if scorer == nil {
		scorer = scoring.NewScorer()
	}
	return &Ranker{scorer: scorer}
}

// Scorer returns the scorer in use.
func (r *Ranker) Scorer() *scoring.Scorer { return r.scorer }

// Rank returns up to topN property ids ordered by score descending, ties
// broken by ascending id. topN <= 0 returns the whole catalog.
func (r *Ranker) Rank(props []model.Property, prof *model.Profile, w scoring.Weights, topN int) ([]int64, error) {
	entries, err := r.RankEntries(props, prof, w, topN)
	if err != nil {
		return nil, err
	}
	return types.IDs(entries), nil
}

// RankEntries is Rank with scores and positions attached.
func (r *Ranker) RankEntries(props []model.Property, prof *model.Profile, w scoring.Weights, topN int) ([]types.Entry, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	vecs := r.Features(props, prof)
	return RankPrecomputed(props, vecs, w, topN), nil
}

// Features extracts the feature vectors of props for prof, index-aligned
// with props. Weight search reuses them since they do not depend on weights.
func (r *Ranker) Features(props []model.Property, prof *model.Profile) []features.Vector {
	ext := r.scorer.Extractor()
	vecs := make([]features.Vector, len(props))
	for i := range props {
		vecs[i] = ext.Extract(&props[i], prof)
	}
	return vecs
}

// RankPrecomputed ranks props from precomputed feature vectors. w must be
// valid and vecs index-aligned with props.
func RankPrecomputed(props []model.Property, vecs []features.Vector, w scoring.Weights, topN int) []types.Entry {
	scored := make([]types.Entry, len(props))
	for i := range props {
		scored[i] = types.Entry{PropertyID: props[i].ID, Score: scoring.Combine(vecs[i], w)}
	}

	slices.SortFunc(scored, compareEntries)

	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	for i := range scored {
		scored[i].Position = i + 1
	}
	return scored
}

// compareEntries orders by score descending then id ascending.
func compareEntries(a, b types.Entry) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.PropertyID, b.PropertyID)
}
