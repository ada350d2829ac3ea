// Package histogram decodes fio's latency histogram bin layout.
//
// fio buckets completion latencies into a log-linear histogram: indices
// below 2*platVal map directly to the latency value, and above that each
// group of platVal buckets spans a doubling latency range. Log files may
// additionally merge adjacent fine bins by a power-of-two coarseness
// factor. All latency values are microseconds.
package histogram

import (
	"fmt"
	"strings"
)

const (
	// platBits and platVal mirror FIO_IO_U_PLAT_BITS and FIO_IO_U_PLAT_VAL
	// from fio's stat.h.
	platBits = 6
	platVal  = 1 << platBits

	// maxCoarseness is the highest bin-merge factor fio supports.
	maxCoarseness = 8

	// minGuessGroups and maxGuessGroups bound the group counts tried when
	// the group count is not known exactly.
	minGuessGroups = 19
	maxGuessGroups = 26
)

// Decode returns the latency value of a fine-grained bin index. edge is a
// fraction in [0,1] indicating how far into the bin the value is taken:
// 0.0 is the lower bound and 1.0 the upper bound. Indices in the linear
// region (below 2*platVal) decode to the index itself.
func Decode(idx int, edge float64) float64 {
	if idx < platVal<<1 {
		return float64(idx)
	}

	errorBits := (idx >> platBits) - 1
	base := int64(1) << (errorBits + platBits)
	bucket := idx % platVal

	return float64(base) + (float64(bucket)+edge)*float64(int64(1)<<errorBits)
}

// DecodeCoarse returns the latency value of a coarse bin index. A coarse
// bin with merge factor 2^coarseness covers the fine-bin range
// [idx*stride, idx*stride+stride); the value is interpolated between that
// range's bounds at the requested edge.
func DecodeCoarse(idx, coarseness int, edge float64) float64 {
	stride := 1 << coarseness
	lower := Decode(idx*stride, 0.0)
	upper := Decode(idx*stride+stride, 1.0)
	return lower + (upper-lower)*edge
}

// Table holds the decoded latency bounds for every bin of a histogram log,
// precomputed once per run. Lower[i] <= Mid[i] <= Upper[i], and all three
// sequences are non-decreasing.
type Table struct {
	Lower []float64
	Mid   []float64
	Upper []float64
}

// NewTable precomputes the bin bound tables for histCols bins at the given
// coarseness.
func NewTable(histCols, coarseness int) *Table {
	t := &Table{
		Lower: make([]float64, histCols),
		Mid:   make([]float64, histCols),
		Upper: make([]float64, histCols),
	}
	for i := 0; i < histCols; i++ {
		t.Lower[i] = DecodeCoarse(i, coarseness, 0.0)
		t.Mid[i] = DecodeCoarse(i, coarseness, 0.5)
		t.Upper[i] = DecodeCoarse(i, coarseness, 1.0)
	}
	return t
}

// Len returns the number of bins in the table.
func (t *Table) Len() int { return len(t.Mid) }

// candidateBins returns the uncoarsened column counts worth trying for a
// given group count. For the group counts fio has actually shipped with
// (19 through 26) all of them are tried, since the log alone does not say
// which build produced it.
func candidateBins(groupNr int) []int {
	if groupNr < minGuessGroups || groupNr > maxGuessGroups {
		return []int{groupNr * platVal}
	}
	bins := make([]int, 0, maxGuessGroups-minGuessGroups+1)
	for g := minGuessGroups; g <= maxGuessGroups; g++ {
		bins = append(bins, g*platVal)
	}
	return bins
}

// ResolveCoarseness determines the coarseness that maps one of the
// candidate bin layouts for groupNr onto the observed histogram column
// count. The first match in coarseness-major order wins. If no combination
// matches, the returned error enumerates the valid column counts per
// coarseness level.
func ResolveCoarseness(groupNr, histCols int) (int, error) {
	bins := candidateBins(groupNr)

	for c := 0; c <= maxCoarseness; c++ {
		stride := 1 << c
		for _, b := range bins {
			if b%stride == 0 && b/stride == histCols {
				return c, nil
			}
		}
	}

	var table strings.Builder
	for c := 0; c <= maxCoarseness; c++ {
		stride := 1 << c
		cells := make([]string, len(bins))
		for i, b := range bins {
			if b%stride == 0 {
				cells[i] = fmt.Sprintf("%d", b/stride)
			} else {
				cells[i] = "N/A"
			}
		}
		fmt.Fprintf(&table, "  coarseness %d: %s\n", c, strings.Join(cells, ", "))
	}

	return 0, fmt.Errorf("unable to determine bin values for %d histogram columns; "+
		"the column count must be one of the following (per coarseness level):\n%s"+
		"possible reasons: the input files do not contain histograms, or fio was "+
		"built with a different FIO_IO_U_PLAT_GROUP_NR (pass it with --group-nr)",
		histCols, table.String())
}
