// Package evaluation measures ranking quality with NDCG@k against
// hand-labelled ground truth.
package evaluation

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/matchtune/internal/domain/model"
)

// DefaultK is the NDCG cutoff.
const DefaultK = 10

// RelevanceFunc maps the zero-based position i of an item in the rank-sorted
// ground truth list of length n to a graded relevance. It must decrease in i
// and be positive for 0 <= i < n.
type RelevanceFunc func(i, n int) float64

// Relevance function names accepted by ParseRelevance.
const (
	RelevanceLinear      = "linear"
	RelevanceExponential = "exponential"
)

// LinearRelevance gives the best item n, the next n-1, down to 1.
func LinearRelevance(i, n int) float64 {
	return float64(n - i)
}

// maxExponent keeps exponential gains finite for long ground truth lists.
const maxExponent = 64

// ExponentialRelevance gives 2^(n-i) - 1, favouring the top of the list
// more sharply than LinearRelevance. Lists longer than maxExponent get every
// gain scaled by 2^(maxExponent-n), which NDCG cancels out.
func ExponentialRelevance(i, n int) float64 {
	if n <= maxExponent {
		return math.Exp2(float64(n-i)) - 1
	}
	return math.Exp2(float64(maxExponent-i)) - math.Exp2(float64(maxExponent-n))
}

// ParseRelevance resolves a relevance function by name.
func ParseRelevance(name string) (RelevanceFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", RelevanceLinear:
		return LinearRelevance, nil
	case RelevanceExponential:
		return ExponentialRelevance, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelevance, name)
	}
}

// NDCG computes NDCG@k of ranked against a ground truth entry using linear
// relevance. It returns 0 when the entry is empty.
func NDCG(ranked []int64, entry []model.Match, k int) float64 {
	return NDCGAtK(ranked, model.GroundTruth{"": entry}.Ordered(""), k, LinearRelevance)
}

// NDCGAtK computes NDCG@k of ranked against ideal, the ground truth ids
// ordered best first. Items missing from ideal have relevance 0. The result
// is in [0, 1]; it is 0 when ideal is empty or k <= 0.
func NDCGAtK(ranked, ideal []int64, k int, rel RelevanceFunc) float64 {
	if len(ideal) == 0 || k <= 0 {
		return 0
	}
	gains := gainTable(ideal, rel)
	idcg := idealDCG(ideal, k, rel)
	if idcg == 0 {
		return 0
	}
	return dcg(ranked, gains, k) / idcg
}

func gainTable(ideal []int64, rel RelevanceFunc) map[int64]float64 {
	gains := make(map[int64]float64, len(ideal))
	for i, id := range ideal {
		if _, seen := gains[id]; !seen {
			gains[id] = rel(i, len(ideal))
		}
	}
	return gains
}

func dcg(ranked []int64, gains map[int64]float64, k int) float64 {
	var sum float64
	for p := 0; p < k && p < len(ranked); p++ {
		sum += gains[ranked[p]] / discount(p)
	}
	return sum
}

func idealDCG(ideal []int64, k int, rel RelevanceFunc) float64 {
	var sum float64
	for p := 0; p < k && p < len(ideal); p++ {
		sum += rel(p, len(ideal)) / discount(p)
	}
	return sum
}

// discount is log2(position+1) for the 1-based position p+1.
func discount(p int) float64 {
	return math.Log2(float64(p + 2))
}
