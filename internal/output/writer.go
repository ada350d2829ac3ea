// Package output renders interval statistics as the fiohist text stream:
// one header line, then one comma-separated row per non-empty interval.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/bc-dunia/fiohist/internal/window"
)

// header matches the column order of the emitted rows.
const header = "end-time, samples, min, avg, median, 90%, 95%, 99%, max"

// Writer renders rows to w, dividing every latency field by divisor and
// printing the five float columns at the configured number of decimals.
// Min and max are truncated to integers after division.
type Writer struct {
	w       io.Writer
	divisor float64
	rowFmt  string
}

// NewWriter creates a Writer. divisor must be >= 1 and decimals >= 0.
func NewWriter(w io.Writer, divisor, decimals int) *Writer {
	floatFmt := fmt.Sprintf("%%.%df", decimals)
	floats := make([]string, 5)
	for i := range floats {
		floats[i] = floatFmt
	}
	return &Writer{
		w:       w,
		divisor: float64(divisor),
		rowFmt:  "%d, %d, %d, " + strings.Join(floats, ", ") + ", %d\n",
	}
}

// WriteHeader writes the column header line.
func (wr *Writer) WriteHeader() error {
	_, err := fmt.Fprintln(wr.w, header)
	return err
}

// WriteRow writes one interval row.
func (wr *Writer) WriteRow(r window.Row) error {
	_, err := fmt.Fprintf(wr.w, wr.rowFmt,
		r.End,
		r.Samples,
		int64(r.Min/wr.divisor),
		r.Avg/wr.divisor,
		r.P50/wr.divisor,
		r.P90/wr.divisor,
		r.P95/wr.divisor,
		r.P99/wr.divisor,
		int64(r.Max/wr.divisor),
	)
	return err
}
