// Package events provides the structured warning channel for fiohist.
// Warnings report recoverable input oddities (empty files, corrupt time
// spans) and are off unless the user opts in.
package events

import (
	"io"
	"log/slog"
	"sync"
)

// WarnLogger emits non-fatal pipeline warnings through slog. A disabled
// logger drops everything, so callers never need to guard their warn
// calls. WarnOnce deduplicates by key for conditions that would otherwise
// fire per record.
type WarnLogger struct {
	logger  *slog.Logger
	enabled bool

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewWarnLogger creates a WarnLogger writing text records to w, typically
// os.Stderr. When enabled is false all warnings are dropped.
func NewWarnLogger(enabled bool, w io.Writer) *WarnLogger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	return &WarnLogger{
		logger:  slog.New(handler),
		enabled: enabled,
		seen:    make(map[string]struct{}),
	}
}

// Enabled reports whether warnings are being emitted.
func (l *WarnLogger) Enabled() bool {
	return l != nil && l.enabled
}

// Warn emits a warning with the given message and attributes.
func (l *WarnLogger) Warn(msg string, args ...any) {
	if !l.Enabled() {
		return
	}
	l.logger.Warn(msg, args...)
}

// WarnOnce emits a warning only the first time key is seen.
func (l *WarnLogger) WarnOnce(key, msg string, args ...any) {
	if !l.Enabled() {
		return
	}
	l.mu.Lock()
	_, dup := l.seen[key]
	if !dup {
		l.seen[key] = struct{}{}
	}
	l.mu.Unlock()
	if dup {
		return
	}
	l.logger.Warn(msg, args...)
}
