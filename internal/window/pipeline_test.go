package window

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bc-dunia/fiohist/internal/histlog"
	"github.com/bc-dunia/fiohist/internal/histogram"
)

type captureSink struct {
	headers int
	rows    []Row
}

func (c *captureSink) WriteHeader() error { c.headers++; return nil }
func (c *captureSink) WriteRow(r Row) error {
	c.rows = append(c.rows, r)
	return nil
}

func buildLog(rows ...string) string {
	return strings.Join(rows, "\n") + "\n"
}

func newTestPipeline(t *testing.T, logs []string, cfg PipelineConfig) (*Pipeline, *captureSink) {
	t.Helper()
	readers := make([]*histlog.Reader, len(logs))
	for i, l := range logs {
		readers[i] = histlog.NewReader(fmt.Sprintf("log%d", i), strings.NewReader(l), 4)
	}
	merger, err := histlog.NewMerger(readers, 100, silentWarn())
	if err != nil {
		t.Fatal(err)
	}

	table := histogram.NewTable(4, 0)
	sink := &captureSink{}
	agg := NewAggregator(table, cfg.IntervalMs, silentWarn())
	return NewPipeline(merger, agg, table, sink, cfg, nil), sink
}

func TestPipelineTwoFileScenario(t *testing.T) {
	logs := []string{
		buildLog("1000, 0, 0, 0, 5, 0, 0"),
		buildLog("1000, 0, 0, 0, 0, 3, 0"),
	}
	p, sink := newTestPipeline(t, logs, PipelineConfig{
		IntervalMs:   1000,
		MaxLatencyMs: 20000,
		SnapOrigin:   true,
	})

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sink.headers != 1 {
		t.Errorf("header written %d times, want 1", sink.headers)
	}
	if len(sink.rows) != 1 {
		t.Fatalf("emitted %d rows, want 1: %+v", len(sink.rows), sink.rows)
	}

	row := sink.rows[0]
	if row.End != 1000 {
		t.Errorf("End = %d, want 1000", row.End)
	}
	if row.Samples != 8 {
		t.Errorf("Samples = %d, want 8", row.Samples)
	}
	// Percentiles come from bin midpoints 1.5 and 2.5 weighted 5:3.
	if row.P50 <= 1.5 || row.P50 >= 2.5 {
		t.Errorf("P50 = %v, want within (1.5, 2.5)", row.P50)
	}
	if row.Avg <= 1.5 || row.Avg >= 2.5 {
		t.Errorf("Avg = %v, want within (1.5, 2.5)", row.Avg)
	}
	if row.Min != 0 {
		t.Errorf("Min = %v, want 0 (one bin below lowest occupied)", row.Min)
	}
	if row.Max != 4 {
		t.Errorf("Max = %v, want 4 (one bin above highest occupied)", row.Max)
	}
}

func TestPipelineSampleCountConservation(t *testing.T) {
	// Boundary-aligned samples land in exactly one interval each, so the
	// emitted counts must sum to the total observation count.
	logs := []string{
		buildLog(
			"1000, 0, 0, 1, 2, 0, 0",
			"2000, 0, 0, 0, 4, 0, 1",
			"3000, 0, 0, 2, 0, 0, 0",
		),
		buildLog(
			"1000, 0, 0, 0, 0, 3, 0",
			"3000, 0, 0, 0, 1, 0, 0",
		),
	}
	p, sink := newTestPipeline(t, logs, PipelineConfig{
		IntervalMs:   1000,
		MaxLatencyMs: 20000,
		SnapOrigin:   true,
	})
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	var total int64
	for _, r := range sink.rows {
		total += r.Samples
	}
	if want := int64(1 + 2 + 4 + 1 + 2 + 3 + 1); total != want {
		t.Errorf("summed sample counts = %d, want %d", total, want)
	}
	for i := 1; i < len(sink.rows); i++ {
		if sink.rows[i].End <= sink.rows[i-1].End {
			t.Errorf("rows not in increasing interval order: %d after %d",
				sink.rows[i].End, sink.rows[i-1].End)
		}
	}
}

func TestPipelineSnapsEpochOrigin(t *testing.T) {
	// First sample ends far past the nominal first interval, as with
	// epoch timestamps; the sweep must jump instead of grinding through
	// empty intervals.
	logs := []string{buildLog("100000, 0, 0, 0, 1, 0, 0")}
	p, sink := newTestPipeline(t, logs, PipelineConfig{
		IntervalMs:   1000,
		MaxLatencyMs: 20000,
		SnapOrigin:   true,
	})
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sink.rows) != 1 {
		t.Fatalf("emitted %d rows, want 1", len(sink.rows))
	}
	if sink.rows[0].End != 100000 {
		t.Errorf("End = %d, want 100000", sink.rows[0].End)
	}
	if sink.rows[0].Samples != 1 {
		t.Errorf("Samples = %d, want 1", sink.rows[0].Samples)
	}
}

func TestPipelineDeterministic(t *testing.T) {
	logs := []string{
		buildLog("1000, 0, 0, 0, 5, 0, 0", "2000, 0, 0, 1, 1, 1, 1"),
		buildLog("1000, 0, 0, 0, 0, 3, 0"),
	}
	cfg := PipelineConfig{IntervalMs: 1000, MaxLatencyMs: 20000, SnapOrigin: true}

	p1, sink1 := newTestPipeline(t, logs, cfg)
	p2, sink2 := newTestPipeline(t, logs, cfg)
	if err := p1.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p2.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(sink1.rows) != len(sink2.rows) {
		t.Fatalf("row counts differ: %d vs %d", len(sink1.rows), len(sink2.rows))
	}
	for i := range sink1.rows {
		if sink1.rows[i] != sink2.rows[i] {
			t.Errorf("row %d differs between runs: %+v vs %+v", i, sink1.rows[i], sink2.rows[i])
		}
	}
}

func TestPipelineCancellation(t *testing.T) {
	logs := []string{buildLog("1000, 0, 0, 0, 5, 0, 0")}
	p, sink := newTestPipeline(t, logs, PipelineConfig{
		IntervalMs:   1000,
		MaxLatencyMs: 20000,
		SnapOrigin:   true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); err == nil {
		t.Fatal("Run succeeded with cancelled context")
	}
	if len(sink.rows) != 0 {
		t.Errorf("emitted %d rows after cancellation, want 0", len(sink.rows))
	}
}
