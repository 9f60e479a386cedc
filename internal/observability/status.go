package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/rahul/agentic/internal/events"
)

// ActiveTask describes a task a worker is currently driving.
type ActiveTask struct {
	TaskID    string    `json:"task_id"`
	Iteration int       `json:"iteration"`
	StartedAt time.Time `json:"started_at"`
}

// Snapshot is a point-in-time view of the worker pool.
type Snapshot struct {
	Active        []ActiveTask `json:"active"`
	Finished      int          `json:"finished"`
	LastHeartbeat time.Time    `json:"last_heartbeat"`
	Uptime        string       `json:"uptime"`
}

// Status tracks running tasks from their lifecycle events.
type Status struct {
	mu            sync.RWMutex
	started       time.Time
	active        map[string]*ActiveTask
	finished      int
	lastHeartbeat time.Time
}

func NewStatus() *Status {
	now := time.Now()
	return &Status{started: now, lastHeartbeat: now, active: make(map[string]*ActiveTask)}
}

// Emit implements events.Sink.
func (s *Status) Emit(evt events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = time.Now()

	switch evt.Type {
	case events.TaskStarted:
		s.active[evt.TaskID] = &ActiveTask{TaskID: evt.TaskID, StartedAt: evt.Timestamp}
	case events.IterStarted:
		if t, ok := s.active[evt.TaskID]; ok {
			if iter, ok := evt.Payload["iter"].(int); ok {
				t.Iteration = iter
			}
		}
	case events.TaskFinished:
		delete(s.active, evt.TaskID)
		s.finished++
	}
}

// Snapshot returns the current state.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]ActiveTask, 0, len(s.active))
	for _, t := range s.active {
		active = append(active, *t)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].StartedAt.Before(active[j].StartedAt) })
	return Snapshot{
		Active:        active,
		Finished:      s.finished,
		LastHeartbeat: s.lastHeartbeat,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
	}
}
