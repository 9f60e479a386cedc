package events

import (
	"sync"
	"time"
)

const (
	defaultReplay    = 256
	defaultBuffer    = 64
	defaultRetention = 10 * time.Minute
)

// Bus is an in-process, per-task publish/subscribe hub. Late subscribers
// first receive the task's buffered history. A slow subscriber loses events
// rather than stalling the publisher. After task_finished the topic is
// closed: subscribers' channels are closed and the history is kept for the
// retention period so clients connecting late still see the outcome.
type Bus struct {
	mu        sync.Mutex
	topics    map[string]*topic
	replay    int
	buffer    int
	retention time.Duration
}

type topic struct {
	history []Event
	subs    map[chan Event]struct{}
	closed  bool
}

func NewBus() *Bus {
	return &Bus{
		topics:    make(map[string]*topic),
		replay:    defaultReplay,
		buffer:    defaultBuffer,
		retention: defaultRetention,
	}
}

func (b *Bus) topicLocked(taskID string) *topic {
	t, ok := b.topics[taskID]
	if !ok {
		t = &topic{subs: make(map[chan Event]struct{})}
		b.topics[taskID] = t
	}
	return t
}

// Emit publishes evt to the subscribers of evt.TaskID.
func (b *Bus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topicLocked(evt.TaskID)
	if t.closed {
		return
	}
	t.history = append(t.history, evt)
	if len(t.history) > b.replay {
		t.history = t.history[len(t.history)-b.replay:]
	}
	for ch := range t.subs {
		select {
		case ch <- evt:
		default:
		}
	}

	if evt.Type == TaskFinished {
		t.closed = true
		for ch := range t.subs {
			close(ch)
			delete(t.subs, ch)
		}
		taskID := evt.TaskID
		time.AfterFunc(b.retention, func() { b.forget(taskID) })
	}
}

func (b *Bus) forget(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[taskID]; ok && t.closed {
		delete(b.topics, taskID)
	}
}

// Subscribe returns a channel of the task's events, starting with its
// buffered history. The channel is closed after task_finished or when
// cancel is called. fresh reports that the task had no topic yet: either
// nothing was emitted for it or its finished topic was already retired, so
// callers must consult the stored task status. Cancelling a fresh
// subscription before any event arrives removes the topic again.
func (b *Bus) Subscribe(taskID string) (ch <-chan Event, cancel func(), fresh bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, exists := b.topics[taskID]
	t := b.topicLocked(taskID)
	c := make(chan Event, max(b.buffer, len(t.history)))
	for _, evt := range t.history {
		c <- evt
	}
	if t.closed {
		close(c)
		return c, func() {}, false
	}
	t.subs[c] = struct{}{}

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := t.subs[c]; ok {
				delete(t.subs, c)
				close(c)
			}
			if len(t.subs) == 0 && len(t.history) == 0 && b.topics[taskID] == t {
				delete(b.topics, taskID)
			}
		})
	}
	return c, cancel, !exists
}

// History returns a copy of the buffered events for taskID.
func (b *Bus) History(taskID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[taskID]
	if !ok {
		return nil
	}
	return append([]Event(nil), t.history...)
}
