// Package events carries task lifecycle notifications from the orchestrator
// to subscribers (SSE streams, the event log, metrics, chat notifiers).
package events

import (
	"time"

	"go.uber.org/zap"
)

// Type names a lifecycle event.
type Type string

const (
	TaskStarted  Type = "task_started"
	IterStarted  Type = "iter_started"
	ToolCalled   Type = "tool_called"
	IterFinished Type = "iter_finished"
	TaskFinished Type = "task_finished"
)

// Event is one lifecycle notification.
type Event struct {
	TaskID    string         `json:"task_id"`
	Type      Type           `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink receives events. Emit must not block for long and must not panic
// into the caller; Fanout guards against the latter.
type Sink interface {
	Emit(evt Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(evt Event)

func (f SinkFunc) Emit(evt Event) { f(evt) }

// Fanout delivers each event to every sink, isolating failures.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// Add registers another sink. Not safe to call concurrently with Emit.
func (f *Fanout) Add(s Sink) {
	f.sinks = append(f.sinks, s)
}

func (f *Fanout) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	for _, s := range f.sinks {
		f.emitOne(s, evt)
	}
}

func (f *Fanout) emitOne(s Sink, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("event sink panicked", zap.String("type", string(evt.Type)), zap.Any("panic", r))
		}
	}()
	s.Emit(evt)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})
