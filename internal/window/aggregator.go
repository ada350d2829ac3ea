// Package window aggregates a time-ordered stream of histogram samples
// into fixed-width time intervals.
//
// A sample's histogram mass is smeared backward in time: an observation
// that completed at the sample's end time started earlier by roughly its
// own latency, so each bin of the sample occupies a wall-clock span ending
// at the sample end time and starting half an interval plus the bin's
// latency before it. The fraction of that span overlapping an interval is
// the weight the bin's counts contribute to it.
package window

import (
	"math"
	"sort"

	"github.com/bc-dunia/fiohist/internal/events"
	"github.com/bc-dunia/fiohist/internal/histlog"
	"github.com/bc-dunia/fiohist/internal/histogram"
)

// Result is the weighted histogram of one time interval, before the
// percentile pass.
type Result struct {
	// End is the interval's end time in ms.
	End int64
	// Samples is the total raw count of observations that qualified for
	// the interval.
	Samples int64
	// Min and Max bound the latencies seen, padded one bin outward to
	// absorb interpolation error.
	Min, Max float64
	// Hist holds the overlap-weighted count per bin, aligned with the bin
	// table's Mid values.
	Hist []float64
}

// Aggregator computes per-interval weighted histograms from buffered
// samples using a precomputed bin table.
type Aggregator struct {
	table      *histogram.Table
	intervalMs int64
	warn       *events.WarnLogger
}

// NewAggregator creates an aggregator for intervals of intervalMs
// milliseconds over bins described by table.
func NewAggregator(table *histogram.Table, intervalMs int64, warn *events.WarnLogger) *Aggregator {
	return &Aggregator{
		table:      table,
		intervalMs: intervalMs,
		warn:       warn,
	}
}

// ProcessInterval scans the buffered samples and builds the weighted
// histogram for the interval [iStart, iEnd). ok is false when no sample
// contributed any observations, in which case the interval produces no
// output row.
func (a *Aggregator) ProcessInterval(buf []histlog.Sample, iStart, iEnd int64) (Result, bool) {
	h := a.table.Len()
	res := Result{
		End:  iEnd,
		Hist: make([]float64, h),
		Min:  math.Inf(1),
		Max:  math.Inf(-1),
	}

	for _, s := range buf {
		a.addSample(&res, s, float64(iStart), float64(iEnd))
	}

	if res.Samples == 0 {
		return Result{}, false
	}
	return res, true
}

func (a *Aggregator) addSample(res *Result, s histlog.Sample, iStart, iEnd float64) {
	h := a.table.Len()
	end := float64(s.EndTime)
	base := end - 0.5*float64(a.intervalMs)

	// Bin i's span starts at base - Mid[i]/1000 (us -> ms). Mids are
	// non-decreasing, so start times are non-increasing in i and the bins
	// that started before iEnd form a suffix of the index range. Bins
	// outside it cannot overlap this interval yet and are deferred.
	first := sort.Search(h, func(i int) bool {
		return base-a.table.Mid[i]/1000 < iEnd
	})
	if first == h {
		return
	}

	lowest, highest := -1, -1
	for i := first; i < h; i++ {
		c := s.Counts[i]
		if c != 0 {
			if lowest < 0 {
				lowest = i
			}
			highest = i
		}
		res.Samples += c

		start := base - a.table.Mid[i]/1000
		span := end - start
		if span <= 0 {
			a.warn.WarnOnce("zero-length-sample",
				"zero-length sample detected, ignoring; corrupt log or bad time values?",
				"end_time", s.EndTime, "source", s.Source)
			continue
		}
		overlap := math.Min(end, iEnd) - math.Max(start, iStart)
		if overlap < 0 {
			overlap = 0
		}
		res.Hist[i] += float64(c) * (overlap / span)
	}

	if lowest < 0 {
		return
	}

	// Pad the extremes one bin outward, clamped to the qualifying range.
	lo := lowest - 1
	if lo < first {
		lo = first
	}
	hi := highest + 1
	if hi > h-1 {
		hi = h - 1
	}
	res.Min = math.Min(res.Min, a.table.Lower[lo])
	res.Max = math.Max(res.Max, a.table.Upper[hi])
}
