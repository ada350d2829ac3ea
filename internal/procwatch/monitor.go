// Package procwatch samples the tool's own resource usage during a run.
//
// The pipeline's buffered samples are bounded by chunk size x file count
// plus the lookahead window, independent of input size; this monitor makes
// that observable on real inputs by logging RSS while the run progresses
// and reporting the peak at exit.
package procwatch

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Monitor periodically samples the current process's RSS and CPU usage
// plus host available memory, logging each sample through slog.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger
	proc     *process.Process

	mu      sync.Mutex
	peakRSS uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Monitor for the current process.
func New(interval time.Duration, logger *slog.Logger) (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}, nil
}

// Start begins sampling in the background until Stop is called or ctx is
// cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

func (m *Monitor) sample() {
	memInfo, err := m.proc.MemoryInfo()
	if err != nil {
		m.logger.Debug("process memory sample failed", "error", err)
		return
	}

	m.mu.Lock()
	if memInfo.RSS > m.peakRSS {
		m.peakRSS = memInfo.RSS
	}
	m.mu.Unlock()

	attrs := []any{
		"rss_bytes", memInfo.RSS,
		"vms_bytes", memInfo.VMS,
	}
	if cpu, err := m.proc.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		attrs = append(attrs, "host_available_bytes", vm.Available)
	}
	m.logger.Info("resource sample", attrs...)
}

// Stop halts sampling and waits for the sampler goroutine to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// PeakRSS returns the largest resident set size observed, in bytes.
func (m *Monitor) PeakRSS() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakRSS
}
