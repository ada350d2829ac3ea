// Command fiohist converts fio *_clat_hist* latency histogram logs into
// per-interval latency statistics.
//
// Example:
//
//	$ fiohist *_clat_hist*
//	end-time, samples, min, avg, median, 90%, 95%, 99%, max
//	1000, 15, 192, 1678.107, 1788.859, 1856.076, 1880.040, 1899.208, 1888.000
//	2000, 43, 152, 1642.368, 1714.099, 1816.659, 1845.552, 1888.131, 1888.000
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bc-dunia/fiohist/internal/config"
	"github.com/bc-dunia/fiohist/internal/events"
	"github.com/bc-dunia/fiohist/internal/histlog"
	"github.com/bc-dunia/fiohist/internal/histogram"
	"github.com/bc-dunia/fiohist/internal/otel"
	"github.com/bc-dunia/fiohist/internal/output"
	"github.com/bc-dunia/fiohist/internal/procwatch"
	"github.com/bc-dunia/fiohist/internal/window"
	"go.opentelemetry.io/otel/attribute"
)

const version = "1.0.0"

func main() {
	interval := flag.Int64("interval", 0, "Interval width in ms (default: job file log_hist_msec, else 1000)")
	bufSize := flag.Int("buf-size", config.DefaultChunkSize, "Number of records to buffer per file chunk")
	maxLatency := flag.Float64("max-latency", config.DefaultMaxLatencySec, "Seconds of data to read past each interval end")
	divisor := flag.Int("divisor", config.DefaultDivisor, "Divide latency results by this value")
	decimals := flag.Int("decimals", config.DefaultDecimals, "Number of decimal places for float columns")
	warn := flag.Bool("warn", false, "Print warning messages to stderr")
	groupNr := flag.Int("group-nr", config.DefaultGroupNr, "FIO_IO_U_PLAT_GROUP_NR as defined in fio's stat.h")
	jobFile := flag.String("job-file", "", "fio job file used to create the logs, for log_hist_msec auto-detection")
	noSnap := flag.Bool("no-snap", false, "Do not snap the first interval to the start of epoch-stamped logs")
	memWatch := flag.Bool("mem-watch", false, "Sample own memory/CPU usage during the run")
	otelExporter := flag.String("otel-exporter", "none", "Telemetry exporter: none, stdout, otlp-grpc, otlp-http")
	otelEndpoint := flag.String("otel-endpoint", "", "OTLP endpoint for telemetry export")
	otelInsecure := flag.Bool("otel-insecure", false, "Disable TLS for OTLP telemetry export")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one histogram log file is required")
		flag.Usage()
		os.Exit(1)
	}

	opts := config.Default()
	opts.Files = flag.Args()
	opts.IntervalMs = *interval
	opts.ChunkSize = *bufSize
	opts.MaxLatencySec = *maxLatency
	opts.Divisor = *divisor
	opts.Decimals = *decimals
	opts.Warn = *warn
	opts.GroupNr = *groupNr
	opts.JobFile = *jobFile
	opts.SnapOrigin = !*noSnap

	if opts.ChunkSize <= 0 || opts.Divisor < 1 || opts.Decimals < 0 || opts.MaxLatencySec < 0 {
		fmt.Fprintln(os.Stderr, "Error: invalid value for --buf-size, --divisor, --decimals or --max-latency")
		os.Exit(1)
	}

	if opts.IntervalMs == 0 && opts.JobFile != "" {
		msec, found, err := config.DetectHistMsec(opts.JobFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if found {
			opts.IntervalMs = msec
		}
	}
	if opts.IntervalMs == 0 {
		opts.IntervalMs = config.DefaultIntervalMs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, *memWatch, otel.Config{
		Enabled:        otel.ExporterType(*otelExporter) != otel.ExporterNone,
		ServiceName:    "fiohist",
		ServiceVersion: version,
		ExporterType:   otel.ExporterType(*otelExporter),
		OTLPEndpoint:   *otelEndpoint,
		OTLPInsecure:   *otelInsecure,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts config.Options, memWatch bool, otelCfg otel.Config) error {
	histCols, err := histlog.DetectColumns(opts.Files[0])
	if err != nil {
		return err
	}

	coarseness, err := histogram.ResolveCoarseness(opts.GroupNr, histCols)
	if err != nil {
		return err
	}
	table := histogram.NewTable(histCols, coarseness)

	warnLog := events.NewWarnLogger(opts.Warn, os.Stderr)

	metrics, err := otel.NewMetrics(ctx, &otelCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: metrics shutdown: %v\n", err)
		}
	}()

	tracer, err := otel.NewTracer(ctx, &otelCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: tracer shutdown: %v\n", err)
		}
	}()

	if memWatch {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		monitor, err := procwatch.New(time.Second, logger)
		if err != nil {
			return fmt.Errorf("failed to start resource monitor: %w", err)
		}
		monitor.Start(ctx)
		defer func() {
			monitor.Stop()
			logger.Info("run finished", "peak_rss_bytes", monitor.PeakRSS())
		}()
	}

	readers := make([]*histlog.Reader, 0, len(opts.Files))
	for _, path := range opts.Files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		readers = append(readers, histlog.NewReader(path, f, histCols))
	}

	merger, err := histlog.NewMerger(readers, opts.ChunkSize, warnLog)
	if err != nil {
		return err
	}

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()

	agg := window.NewAggregator(table, opts.IntervalMs, warnLog)
	pipeline := window.NewPipeline(merger, agg, table, output.NewWriter(stdout, opts.Divisor, opts.Decimals), window.PipelineConfig{
		IntervalMs:   opts.IntervalMs,
		MaxLatencyMs: opts.MaxLatencyMs(),
		SnapOrigin:   opts.SnapOrigin,
	}, metrics)

	runCtx, endSpan := tracer.StartSpan(ctx, "fiohist.run",
		attribute.Int("files", len(opts.Files)),
		attribute.Int64("interval_ms", opts.IntervalMs),
		attribute.Int("histogram_columns", histCols),
		attribute.Int("coarseness", coarseness),
	)
	defer endSpan()

	return pipeline.Run(runCtx)
}
