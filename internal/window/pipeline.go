package window

import (
	"context"

	"github.com/bc-dunia/fiohist/internal/histlog"
	"github.com/bc-dunia/fiohist/internal/histogram"
	"github.com/bc-dunia/fiohist/internal/otel"
	"github.com/bc-dunia/fiohist/internal/stats"
)

// percentileTargets are the percentiles reported per interval, matching
// the output header.
var percentileTargets = []float64{50, 90, 95, 99}

// Row is one fully computed output row for a non-empty interval.
type Row struct {
	End     int64
	Samples int64
	Min     float64
	Avg     float64
	P50     float64
	P90     float64
	P95     float64
	P99     float64
	Max     float64
}

// Sink receives the rendered output stream.
type Sink interface {
	WriteHeader() error
	WriteRow(Row) error
}

// PipelineConfig holds the timing parameters of the interval sweep.
type PipelineConfig struct {
	// IntervalMs is the width of each output interval.
	IntervalMs int64
	// MaxLatencyMs is how far past the current interval end samples are
	// buffered. A sample's mass can reach intervals up to this far back
	// from its end time, so the buffer must lead by the same amount.
	MaxLatencyMs int64
	// SnapOrigin jumps the first interval to the start of the data,
	// rounded down to an interval multiple, when the first sample ends
	// more than MaxLatencyMs past the nominal first interval. This keeps
	// epoch-stamped logs from sweeping through years of empty intervals.
	SnapOrigin bool
}

// Pipeline drives the merge -> aggregate -> percentile sweep over the
// whole run, advancing one interval at a time and keeping only the
// samples that can still contribute.
type Pipeline struct {
	merger  *histlog.Merger
	agg     *Aggregator
	table   *histogram.Table
	sink    Sink
	cfg     PipelineConfig
	metrics *otel.Metrics
}

// NewPipeline wires a pipeline. metrics may be nil.
func NewPipeline(merger *histlog.Merger, agg *Aggregator, table *histogram.Table,
	sink Sink, cfg PipelineConfig, metrics *otel.Metrics) *Pipeline {
	return &Pipeline{
		merger:  merger,
		agg:     agg,
		table:   table,
		sink:    sink,
		cfg:     cfg,
		metrics: metrics,
	}
}

// Run processes every interval until the input is exhausted or ctx is
// cancelled. Cancellation is observed between intervals, never mid-row.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.sink.WriteHeader(); err != nil {
		return err
	}

	var buf []histlog.Sample
	start := int64(0)
	end := p.cfg.IntervalMs
	moreData := true

	for moreData || len(buf) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Pull samples until the buffer leads the interval end by the
		// full lookahead window.
		for moreData && (len(buf) == 0 || buf[len(buf)-1].EndTime < end+p.cfg.MaxLatencyMs) {
			s, ok, err := p.merger.Next()
			if err != nil {
				return err
			}
			if !ok {
				moreData = false
				break
			}
			buf = append(buf, s)
			p.metrics.SampleMerged(ctx)
		}
		p.metrics.SetBuffered(int64(len(buf)))

		if len(buf) > 0 {
			if p.cfg.SnapOrigin && start == 0 && buf[0].EndTime-p.cfg.MaxLatencyMs > end {
				start = buf[0].EndTime - p.cfg.MaxLatencyMs
				start -= start % p.cfg.IntervalMs
				end = start + p.cfg.IntervalMs
			}

			if res, ok := p.agg.ProcessInterval(buf, start, end); ok {
				if err := p.sink.WriteRow(p.buildRow(res)); err != nil {
					return err
				}
				p.metrics.IntervalEmitted(ctx)
			}

			// Samples ending at or before the interval end cannot reach
			// any later interval; drop them.
			kept := buf[:0]
			for _, s := range buf {
				if s.EndTime > end {
					kept = append(kept, s)
				}
			}
			buf = kept
		}

		start += p.cfg.IntervalMs
		end = start + p.cfg.IntervalMs
	}
	return nil
}

func (p *Pipeline) buildRow(res Result) Row {
	ps := stats.WeightedPercentiles(percentileTargets, p.table.Mid, res.Hist)
	return Row{
		End:     res.End,
		Samples: res.Samples,
		Min:     res.Min,
		Avg:     stats.WeightedMean(p.table.Mid, res.Hist),
		P50:     ps[0],
		P90:     ps[1],
		P95:     ps[2],
		P99:     ps[3],
		Max:     res.Max,
	}
}
