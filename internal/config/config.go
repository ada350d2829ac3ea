// Package config holds the fiohist run options and their defaults.
package config

// Default values for the run options. Interval defaults are applied only
// after job-file auto-detection has had a chance to run.
const (
	DefaultIntervalMs    = 1000
	DefaultChunkSize     = 10000
	DefaultMaxLatencySec = 20.0
	DefaultDivisor       = 1
	DefaultDecimals      = 3
	// DefaultGroupNr is FIO_IO_U_PLAT_GROUP_NR in current fio builds.
	DefaultGroupNr = 29
)

// Options are the resolved settings for one run.
type Options struct {
	// Files are the input histogram logs, in command-line order.
	Files []string

	// IntervalMs is the output interval width in milliseconds. Zero means
	// unset: take it from the job file, else DefaultIntervalMs.
	IntervalMs int64

	// ChunkSize is the number of records read per file per chunk.
	ChunkSize int

	// MaxLatencySec is the lookahead window in seconds: how far past an
	// interval end samples are buffered before the interval is processed.
	MaxLatencySec float64

	// Divisor scales all latency outputs down before printing.
	Divisor int

	// Decimals is the number of decimal places for float columns.
	Decimals int

	// Warn enables non-fatal warnings on stderr.
	Warn bool

	// GroupNr is fio's FIO_IO_U_PLAT_GROUP_NR, used to resolve the bin
	// table when the column count alone is ambiguous.
	GroupNr int

	// JobFile optionally points at the fio job file that produced the
	// logs, for interval auto-detection.
	JobFile string

	// SnapOrigin enables jumping the first interval to the start of the
	// data for epoch-stamped logs.
	SnapOrigin bool
}

// Default returns Options with all defaults applied except IntervalMs,
// which stays unset so job-file detection can fill it in.
func Default() Options {
	return Options{
		ChunkSize:     DefaultChunkSize,
		MaxLatencySec: DefaultMaxLatencySec,
		Divisor:       DefaultDivisor,
		Decimals:      DefaultDecimals,
		GroupNr:       DefaultGroupNr,
		SnapOrigin:    true,
	}
}

// MaxLatencyMs returns the lookahead window in milliseconds.
func (o Options) MaxLatencyMs() int64 {
	return int64(o.MaxLatencySec * 1000)
}
