package histlog

import (
	"github.com/bc-dunia/fiohist/internal/events"
)

// Merger combines N per-file readers into one stream of samples ordered by
// non-decreasing end time. Ties are broken by the lowest file index, so
// the interleaving is stable with respect to the input file order.
//
// One chunk buffer is held per file, so at most N x chunkSize records are
// in memory at any point in the merge.
type Merger struct {
	readers   []*Reader
	chunkSize int
	warn      *events.WarnLogger

	bufs  [][]Sample
	heads []int
	live  []bool
}

// NewMerger creates a merger over the given readers and performs the
// initial chunk read on each. A file that yields no records at all is
// excluded from the merge with a warning rather than aborting the run.
func NewMerger(readers []*Reader, chunkSize int, warn *events.WarnLogger) (*Merger, error) {
	m := &Merger{
		readers:   readers,
		chunkSize: chunkSize,
		warn:      warn,
		bufs:      make([][]Sample, len(readers)),
		heads:     make([]int, len(readers)),
		live:      make([]bool, len(readers)),
	}

	for i, r := range readers {
		chunk, err := r.ReadChunk(chunkSize)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			warn.Warn("empty input file encountered", "file", r.name)
			continue
		}
		m.bufs[i] = chunk
		m.live[i] = true
	}
	return m, nil
}

// Next returns the sample with the smallest end time across all live
// files, tagged with its source file index. ok is false once every file is
// exhausted.
func (m *Merger) Next() (s Sample, ok bool, err error) {
	src := -1
	for i := range m.readers {
		if !m.live[i] {
			continue
		}
		head := m.bufs[i][m.heads[i]]
		if src < 0 || head.EndTime < s.EndTime {
			s = head
			src = i
		}
	}
	if src < 0 {
		return Sample{}, false, nil
	}
	s.Source = src

	m.heads[src]++
	if m.heads[src] == len(m.bufs[src]) {
		if err := m.refill(src); err != nil {
			return Sample{}, false, err
		}
	}
	return s, true, nil
}

func (m *Merger) refill(i int) error {
	chunk, err := m.readers[i].ReadChunk(m.chunkSize)
	if err != nil {
		return err
	}
	m.heads[i] = 0
	m.bufs[i] = chunk
	m.live[i] = len(chunk) > 0
	return nil
}

// Buffered returns the number of records currently held in chunk buffers,
// for observability.
func (m *Merger) Buffered() int {
	n := 0
	for i := range m.bufs {
		if m.live[i] {
			n += len(m.bufs[i]) - m.heads[i]
		}
	}
	return n
}
