package otel

import (
	"context"
	"testing"
)

func TestNewMetricsDisabled(t *testing.T) {
	ctx := context.Background()

	m, err := NewMetrics(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	// No-op instance must accept recordings and shut down cleanly.
	m.SampleMerged(ctx)
	m.IntervalEmitted(ctx)
	m.SetBuffered(42)
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	ctx := context.Background()
	var m *Metrics

	m.SampleMerged(ctx)
	m.IntervalEmitted(ctx)
	m.SetBuffered(1)
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown on nil: %v", err)
	}
}

func TestNewMetricsUnknownExporter(t *testing.T) {
	_, err := NewMetrics(context.Background(), &Config{
		Enabled:      true,
		ServiceName:  "fiohist",
		ExporterType: ExporterType("bogus"),
	})
	if err == nil {
		t.Error("want error for unknown exporter type")
	}
}

func TestNewTracerDisabled(t *testing.T) {
	ctx := context.Background()

	tr, err := NewTracer(ctx, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	_, end := tr.StartSpan(ctx, "fiohist.run")
	end()
	if err := tr.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNilTracerIsSafe(t *testing.T) {
	ctx := context.Background()
	var tr *Tracer

	got, end := tr.StartSpan(ctx, "anything")
	if got != ctx {
		t.Error("nil tracer changed the context")
	}
	end()
	if err := tr.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown on nil: %v", err)
	}
}
