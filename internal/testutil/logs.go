package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecord is a captured log entry.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogRecorder is a slog.Handler that keeps every record for assertions.
//
// Handlers derived with WithAttrs/WithGroup share the parent's storage;
// group names are ignored.
type LogRecorder struct {
	mu      *sync.Mutex
	records *[]LogRecord
	attrs   []slog.Attr
}

// NewLogRecorder creates an empty recorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{
		mu:      &sync.Mutex{},
		records: &[]LogRecord{},
	}
}

// Logger returns a logger writing into the recorder.
func (r *LogRecorder) Logger() *slog.Logger {
	return slog.New(r)
}

// Enabled implements slog.Handler. Every level is captured.
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]any, rec.NumAttrs()+len(r.attrs))
	for _, a := range r.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.records = append(*r.records, LogRecord{
		Level:   rec.Level,
		Message: rec.Message,
		Attrs:   attrs,
	})
	return nil
}

// WithAttrs implements slog.Handler.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &LogRecorder{mu: r.mu, records: r.records, attrs: merged}
}

// WithGroup implements slog.Handler.
func (r *LogRecorder) WithGroup(string) slog.Handler {
	return r
}

// Records returns a copy of everything captured so far.
func (r *LogRecorder) Records() []LogRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogRecord, len(*r.records))
	copy(out, *r.records)
	return out
}

// Count returns how many records were captured at level.
func (r *LogRecorder) Count(level slog.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range *r.records {
		if rec.Level == level {
			n++
		}
	}
	return n
}
