package strategy

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"xsmom/internal/domain"
)

// DefaultQuantile is the fraction of the cross-section held in each of the
// long and short buckets.
const DefaultQuantile = 1.0 / 3.0

// LongShortWeights builds a dollar-neutral weight vector from one date's
// cross-sectional signal. Symbols missing from row have no signal and are
// left out of the ranking. With n ranked symbols and k = max(1, floor(n*q)),
// the k lowest scores get -0.5/k each and the k highest get +0.5/k each.
//
// The short bucket is written before the long bucket, so when the two
// overlap (tiny cross-sections with large q) the overlapping symbols end up
// long. The result always spans every symbol in symbols; an empty row
// yields all zeros.
func LongShortWeights(row map[string]float64, symbols []string, q float64) domain.Weights {
	w := make(domain.Weights, len(symbols))
	for _, sym := range symbols {
		w[sym] = 0
	}

	ranked := lo.Filter(symbols, func(sym string, _ int) bool {
		_, ok := row[sym]
		return ok
	})
	if len(ranked) == 0 {
		return w
	}

	n := len(ranked)
	k := max(1, int(math.Floor(float64(n)*q)))
	k = min(k, n)

	// Stable so equal scores keep the instrument order.
	slices.SortStableFunc(ranked, func(a, b string) int {
		switch {
		case row[a] < row[b]:
			return -1
		case row[a] > row[b]:
			return 1
		}
		return 0
	})

	for _, sym := range ranked[:k] {
		w[sym] = -0.5 / float64(k)
	}
	for _, sym := range ranked[n-k:] {
		w[sym] = 0.5 / float64(k)
	}
	return w
}

// Turnover is the sum of absolute weight changes between prev and next over
// the union of their symbols. A symbol absent from one side counts as zero.
func Turnover(prev, next domain.Weights) float64 {
	syms := lo.Union(lo.Keys(map[string]float64(prev)), lo.Keys(map[string]float64(next)))
	slices.Sort(syms)

	var t float64
	for _, sym := range syms {
		t += math.Abs(next[sym] - prev[sym])
	}
	return t
}
