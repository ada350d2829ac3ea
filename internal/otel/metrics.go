// Package otel provides optional OpenTelemetry metrics and tracing for the
// fiohist pipeline. Everything is a no-op unless an exporter is selected.
package otel

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics exposes the pipeline's counters and gauges. A nil *Metrics is a
// valid no-op receiver, so callers never have to branch on whether
// observability is enabled.
type Metrics struct {
	config        *Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	shutdown      func(context.Context) error

	buffered atomic.Int64

	samplesMerged    metric.Int64Counter
	intervalsEmitted metric.Int64Counter
	bufferGauge      metric.Int64ObservableGauge
	bufferGaugeReg   metric.Registration
}

// NewMetrics creates a Metrics instance. With ExporterNone (or a nil
// config) it returns a no-op backed by an SDK provider with no readers.
func NewMetrics(ctx context.Context, cfg *Config) (*Metrics, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &Metrics{config: cfg}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		m.meterProvider = sdkmetric.NewMeterProvider()
		m.meter = m.meterProvider.Meter(cfg.ServiceName)
		m.shutdown = func(context.Context) error { return nil }
		return m, nil
	}

	exporter, err := m.createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	m.meterProvider = mp
	m.meter = mp.Meter(cfg.ServiceName)
	m.shutdown = mp.Shutdown

	if err := m.registerInstruments(); err != nil {
		return nil, fmt.Errorf("failed to register metric instruments: %w", err)
	}
	return m, nil
}

// createExporter creates the metrics exporter selected by the config.
func (m *Metrics) createExporter(ctx context.Context, cfg *Config) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()

	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)

	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

// registerInstruments creates the pipeline instruments.
func (m *Metrics) registerInstruments() error {
	var err error

	m.samplesMerged, err = m.meter.Int64Counter(
		"fiohist.samples.merged",
		metric.WithDescription("Histogram samples drawn from the time-ordered merge"),
	)
	if err != nil {
		return fmt.Errorf("failed to create samples counter: %w", err)
	}

	m.intervalsEmitted, err = m.meter.Int64Counter(
		"fiohist.intervals.emitted",
		metric.WithDescription("Non-empty output intervals written"),
	)
	if err != nil {
		return fmt.Errorf("failed to create intervals counter: %w", err)
	}

	m.bufferGauge, err = m.meter.Int64ObservableGauge(
		"fiohist.buffer.samples",
		metric.WithDescription("Samples currently buffered for open intervals"),
	)
	if err != nil {
		return fmt.Errorf("failed to create buffer gauge: %w", err)
	}

	m.bufferGaugeReg, err = m.meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(m.bufferGauge, m.buffered.Load())
			return nil
		},
		m.bufferGauge,
	)
	if err != nil {
		return fmt.Errorf("failed to register buffer gauge callback: %w", err)
	}
	return nil
}

// SampleMerged records one sample pulled from the merge.
func (m *Metrics) SampleMerged(ctx context.Context) {
	if m == nil || m.samplesMerged == nil {
		return
	}
	m.samplesMerged.Add(ctx, 1)
}

// IntervalEmitted records one output row written.
func (m *Metrics) IntervalEmitted(ctx context.Context) {
	if m == nil || m.intervalsEmitted == nil {
		return
	}
	m.intervalsEmitted.Add(ctx, 1)
}

// SetBuffered updates the buffered-sample gauge.
func (m *Metrics) SetBuffered(n int64) {
	if m == nil {
		return
	}
	m.buffered.Store(n)
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.shutdown == nil {
		return nil
	}
	if m.bufferGaugeReg != nil {
		_ = m.bufferGaugeReg.Unregister()
	}
	return m.shutdown(ctx)
}
