package stats

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// referencePercentile is an independent unweighted implementation of the
// midpoint-of-step CDF percentile used to pin the weighted estimator's
// behavior under uniform weights.
func referencePercentile(p float64, values []float64) float64 {
	vs := make([]float64, len(values))
	copy(vs, values)
	sort.Float64s(vs)

	n := len(vs)
	pos := make([]float64, n)
	for k := range pos {
		pos[k] = 100 * (float64(k) + 0.5) / float64(n)
	}

	if p <= pos[0] {
		return vs[0]
	}
	if p >= pos[n-1] {
		return vs[n-1]
	}
	hi := sort.SearchFloat64s(pos, p)
	lo := hi - 1
	frac := (p - pos[lo]) / (pos[hi] - pos[lo])
	return vs[lo] + frac*(vs[hi]-vs[lo])
}

func TestWeightedPercentilesUniformWeightsMatchUnweighted(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	targets := []float64{1, 10, 25, 50, 75, 90, 95, 99}

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		values := make([]float64, n)
		weights := make([]float64, n)
		for i := range values {
			values[i] = rng.Float64() * 10000
			weights[i] = 1
		}

		got := WeightedPercentiles(targets, values, weights)
		for i, p := range targets {
			want := referencePercentile(p, values)
			if !almostEqual(got[i], want) {
				t.Fatalf("trial %d: p%v = %v, want %v (n=%d)", trial, p, got[i], want, n)
			}
		}
	}
}

func TestWeightedPercentilesKnownValues(t *testing.T) {
	// Two values weighted 5:3. CDF positions are 31.25 and 81.25.
	values := []float64{1, 2}
	weights := []float64{5, 3}

	got := WeightedPercentiles([]float64{50, 90, 10}, values, weights)

	if want := 1 + (50.0-31.25)/50.0; !almostEqual(got[0], want) {
		t.Errorf("p50 = %v, want %v", got[0], want)
	}
	if !almostEqual(got[1], 2) {
		t.Errorf("p90 = %v, want 2 (clamped at upper end)", got[1])
	}
	if !almostEqual(got[2], 1) {
		t.Errorf("p10 = %v, want 1 (clamped at lower end)", got[2])
	}
}

func TestWeightedPercentilesUnsortedInput(t *testing.T) {
	a := WeightedPercentiles([]float64{50}, []float64{3, 1, 2}, []float64{1, 1, 1})
	b := WeightedPercentiles([]float64{50}, []float64{1, 2, 3}, []float64{1, 1, 1})
	if !almostEqual(a[0], b[0]) {
		t.Errorf("percentile depends on input order: %v vs %v", a[0], b[0])
	}
}

func TestWeightedPercentilesZeroWeightPoints(t *testing.T) {
	// Zero-weight points may add interpolation nodes but must not panic or
	// produce values outside the observed range.
	values := []float64{1, 2, 3, 4}
	weights := []float64{5, 0, 0, 3}

	got := WeightedPercentiles([]float64{0, 50, 100}, values, weights)
	for i, v := range got {
		if v < 1 || v > 4 {
			t.Errorf("result %d = %v outside value range", i, v)
		}
	}
}

func TestWeightedMean(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		weights []float64
		want    float64
	}{
		{name: "uniform", values: []float64{1, 2, 3}, weights: []float64{1, 1, 1}, want: 2},
		{name: "weighted 5:3", values: []float64{1, 2}, weights: []float64{5, 3}, want: 11.0 / 8.0},
		{name: "single", values: []float64{7}, weights: []float64{2}, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeightedMean(tt.values, tt.weights); !almostEqual(got, tt.want) {
				t.Errorf("WeightedMean = %v, want %v", got, tt.want)
			}
		})
	}
}
