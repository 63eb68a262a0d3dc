package es

import (
	"fmt"
	"sort"
)

// Ranks returns integer ranks in [0, len(x)) with the smallest value
// ranked 0. Ties resolve in favor of the earlier original index (stable
// sort), keeping the transform deterministic for repeated scores.
func Ranks(x []float64) []int {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[order[a]] < x[order[b]]
	})

	ranks := make([]int, len(x))
	for r, i := range order {
		ranks[i] = r
	}
	return ranks
}

// CenteredRanks maps scores to evenly spaced values in [-0.5, 0.5],
// preserving order but discarding scale. This is what makes the ES
// updates robust to reward scaling and outliers. Needs at least two
// scores; a single score would divide by zero.
func CenteredRanks(x []float64) ([]float64, error) {
	if len(x) < 2 {
		return nil, fmt.Errorf("centered ranks need at least 2 scores, got %d", len(x))
	}

	out := make([]float64, len(x))
	n := float64(len(x) - 1)
	for i, r := range Ranks(x) {
		out[i] = float64(r)/n - 0.5
	}
	return out, nil
}

// WeightDecay returns an L2 penalty per candidate, -coef * mean(p^2),
// meant to be added to maximized fitness. Callers skip the call
// entirely when the coefficient is zero or negative.
func WeightDecay(coef float64, candidates [][]float64) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		var sum float64
		for _, v := range c {
			sum += v * v
		}
		out[i] = -coef * sum / float64(len(c))
	}
	return out
}
