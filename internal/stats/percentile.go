// Package stats implements weighted summary statistics over latency
// distributions where each value carries a multiplicity rather than
// count 1.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// WeightedPercentiles computes the requested percentiles (percent values
// in [0,100]) of values under the given weights.
//
// Pairs are sorted by value, each point is placed on an empirical CDF at
// the midpoint of its cumulative weight step, and targets are linearly
// interpolated between the two bracketing points, clamping at the ends.
// The total weight must be positive.
func WeightedPercentiles(targets, values, weights []float64) []float64 {
	n := len(values)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	vs := make([]float64, n)
	ws := make([]float64, n)
	for i, idx := range order {
		vs[i] = values[idx]
		ws[i] = weights[idx]
	}

	cum := floats.CumSum(make([]float64, n), ws)
	total := cum[n-1]

	// Percentile position of each point: midpoint-of-step CDF.
	pos := make([]float64, n)
	for i := range pos {
		pos[i] = 100 * (cum[i] - ws[i]/2) / total
	}

	out := make([]float64, len(targets))
	for i, p := range targets {
		out[i] = interp(p, pos, vs)
	}
	return out
}

// interp linearly interpolates y(x) over the piecewise-linear curve given
// by the sorted xs and their ys, clamping outside the range.
func interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}

	hi := sort.SearchFloat64s(xs, x)
	lo := hi - 1
	if xs[hi] == xs[lo] {
		return ys[hi]
	}
	frac := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + frac*(ys[hi]-ys[lo])
}

// WeightedMean returns the weight-averaged value. The total weight must be
// positive.
func WeightedMean(values, weights []float64) float64 {
	return floats.Dot(values, weights) / floats.Sum(weights)
}
