package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/events"
)

const defaultMaxLogSize = 10 * 1024 * 1024 // 10MB

// eventRecord is one line of events.log.
type eventRecord struct {
	Timestamp string         `json:"timestamp"`
	Type      events.Type    `json:"type"`
	TaskID    string         `json:"task_id"`
	Payload   map[string]any `json:"payload"`
}

// EventLog appends every lifecycle event to a JSONL file, keeping one
// rotated ".old" generation once the file grows past maxSize.
type EventLog struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	logger  *zap.Logger
}

func NewEventLog(path string, logger *zap.Logger) *EventLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLog{path: path, maxSize: defaultMaxLogSize, logger: logger}
}

// Emit implements events.Sink. Write failures are logged and dropped.
func (l *EventLog) Emit(evt events.Event) {
	data, err := json.Marshal(eventRecord{
		Timestamp: evt.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		Type:      evt.Type,
		TaskID:    evt.TaskID,
		Payload:   evt.Payload,
	})
	if err != nil {
		l.logger.Warn("failed to marshal event", zap.String("type", string(evt.Type)), zap.Error(err))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeToFile(data)
}

func (l *EventLog) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.logger.Warn("failed to create event log directory", zap.Error(err))
		return
	}

	if info, err := os.Stat(l.path); err == nil && info.Size() > l.maxSize {
		l.rotate()
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.logger.Warn("failed to open event log", zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.logger.Warn("failed to write event log", zap.Error(err))
	}
}

func (l *EventLog) rotate() {
	oldPath := l.path + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.path, oldPath)
}
