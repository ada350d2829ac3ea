// Package histlog reads fio latency histogram logs and merges samples from
// multiple files into one time-ordered stream.
//
// Each log line is a comma-separated record: an end timestamp in
// milliseconds, two reserved columns, then one count per histogram bin.
// Files are read in fixed-size chunks so memory stays bounded by
// chunk size x file count regardless of log length.
package histlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// reservedColumns is the number of non-histogram columns at the start of
// each record (end time, direction, block size).
const reservedColumns = 3

// maxLineBytes caps a single log line. The widest layout fio produces is
// 1664 bins, well under this.
const maxLineBytes = 1 << 20

// Sample is one histogram record: the counts observed during the sample
// period that ended at EndTime, tagged with the index of the file it came
// from.
type Sample struct {
	EndTime int64
	Source  int
	Counts  []int64
}

// DetectColumns reads the first line of the named file and returns the
// number of histogram columns in it (total columns minus the reserved
// ones).
func DetectColumns(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		return 0, fmt.Errorf("%s: empty file", path)
	}

	cols := strings.Count(sc.Text(), ",") + 1
	if cols <= reservedColumns {
		return 0, fmt.Errorf("%s: %d columns, need more than %d", path, cols, reservedColumns)
	}
	return cols - reservedColumns, nil
}

// Reader parses histogram records from one log file, a chunk at a time.
// Every record must carry exactly histCols count columns; anything else is
// a fatal parse error.
type Reader struct {
	name     string
	sc       *bufio.Scanner
	histCols int
	line     int
	done     bool
}

// NewReader creates a Reader over r. name is used in parse error messages.
func NewReader(name string, r io.Reader, histCols int) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{
		name:     name,
		sc:       sc,
		histCols: histCols,
	}
}

// ReadChunk reads up to sz records. It returns a zero-length slice once
// the file is exhausted.
func (r *Reader) ReadChunk(sz int) ([]Sample, error) {
	if r.done {
		return nil, nil
	}

	chunk := make([]Sample, 0, sz)
	for len(chunk) < sz {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return nil, fmt.Errorf("%s: %w", r.name, err)
			}
			r.done = true
			break
		}
		r.line++

		s, err := r.parseRecord(r.sc.Text())
		if err != nil {
			return nil, err
		}
		chunk = append(chunk, s)
	}
	return chunk, nil
}

func (r *Reader) parseRecord(line string) (Sample, error) {
	fields := strings.Split(line, ",")
	if len(fields) != r.histCols+reservedColumns {
		return Sample{}, fmt.Errorf("%s:%d: %d columns, want %d",
			r.name, r.line, len(fields), r.histCols+reservedColumns)
	}

	endTime, err := parseField(fields[0])
	if err != nil {
		return Sample{}, fmt.Errorf("%s:%d: bad end time: %w", r.name, r.line, err)
	}
	// Reserved columns must still be well-formed integers.
	for _, f := range fields[1:reservedColumns] {
		if _, err := parseField(f); err != nil {
			return Sample{}, fmt.Errorf("%s:%d: bad reserved column: %w", r.name, r.line, err)
		}
	}

	counts := make([]int64, r.histCols)
	for i, f := range fields[reservedColumns:] {
		counts[i], err = parseField(f)
		if err != nil {
			return Sample{}, fmt.Errorf("%s:%d: bad count in bin %d: %w", r.name, r.line, i, err)
		}
	}

	return Sample{EndTime: endTime, Counts: counts}, nil
}

func parseField(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %d", v)
	}
	return v, nil
}
