// Package logbuf keeps a bounded in-process buffer of recent log entries so
// the admin surface can show them without external log shipping.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is a single captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Buffer is a thread-safe bounded buffer of log entries. When full, the
// oldest entries are dropped.
type Buffer struct {
	mu      sync.Mutex
	max     int
	entries []Entry
}

// New creates a Buffer holding up to max entries.
func New(max int) *Buffer {
	return &Buffer{max: max}
}

// Append adds an entry, dropping the oldest when the buffer is full.
func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	if len(b.entries) > b.max {
		// Shift in place so the slice doesn't grow without bound.
		n := copy(b.entries, b.entries[len(b.entries)-b.max:])
		b.entries = b.entries[:n]
	}
}

// Query returns entries at or above minLevel recorded at or after since,
// oldest first. A zero since matches everything. limit <= 0 means no limit;
// otherwise the newest matching entries are kept.
func (b *Buffer) Query(since time.Time, minLevel slog.Level, limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Entry
	for _, e := range b.entries {
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if ParseLevel(e.Level) < minLevel {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// ParseLevel converts a level string back to slog.Level. Unknown strings
// parse as info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
