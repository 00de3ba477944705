package events

import (
	"log/slog"
	"sync"

	"lendbridge/core/types"
)

// Record is implemented by emitted events that carry a structured payload for
// downstream consumers.
type Record interface {
	Event() *types.Event
}

// Log is an Emitter that retains the most recent events in memory and mirrors
// each one to structured logging. It backs the node's event query surface.
type Log struct {
	logger *slog.Logger
	limit  int

	mu      sync.Mutex
	entries []*types.Event
}

// NewLog constructs a log retaining up to limit events.
func NewLog(logger *slog.Logger, limit int) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 1024
	}
	return &Log{logger: logger, limit: limit}
}

// Emit records the event and writes a structured log line.
func (l *Log) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	record, ok := evt.(Record)
	if !ok {
		return
	}
	entry := record.Event()
	if entry == nil {
		return
	}
	attrs := make([]any, 0, 2*len(entry.Attributes))
	for key, value := range entry.Attributes {
		attrs = append(attrs, key, value)
	}
	l.logger.Info(entry.Type, attrs...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Events returns a copy of the retained events, oldest first.
func (l *Log) Events() []*types.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*types.Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Fanout broadcasts every event to each wrapped emitter.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, emitter := range f {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
