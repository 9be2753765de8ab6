package optimize

import (
	"context"
	"slices"

	"github.com/okian/matchtune/internal/domain/evaluation"
	"github.com/okian/matchtune/internal/domain/model"
	"github.com/okian/matchtune/internal/domain/scoring"
)

// OptimizeWeights tunes weights for mean NDCG@10 over the dataset with the
// default evaluator, starting from the base weights. It returns the best
// weights, their score and the per-method report. When nothing beats the
// base weights they are returned unchanged.
func OptimizeWeights(ctx context.Context, props []model.Property, profiles []model.Profile, gt model.GroundTruth, bounds Bounds, seed int64, opts ...Option) (scoring.Weights, float64, Report, error) {
	prep, err := evaluation.NewEvaluator().Prepare(props, profiles, gt)
	if err != nil {
		return nil, 0, Report{}, err
	}
	opts = append(slices.Clone(opts), WithSeed(seed))
	rep, err := New(opts...).Optimize(ctx, prep.Objective, bounds, scoring.BaseWeights())
	if err != nil {
		return nil, 0, rep, err
	}
	return rep.Best, rep.BestScore, rep, nil
}
