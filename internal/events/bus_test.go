package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, evt)
		case <-timeout:
			t.Fatal("channel was not closed")
		}
	}
}

func types(evts []Event) []Type {
	out := make([]Type, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

func TestBus_LiveSubscriber(t *testing.T) {
	b := NewBus()
	ch, cancel, _ := b.Subscribe("t1")
	defer cancel()

	b.Emit(Event{TaskID: "t1", Type: TaskStarted})
	b.Emit(Event{TaskID: "other", Type: TaskStarted})
	b.Emit(Event{TaskID: "t1", Type: IterStarted, Payload: map[string]any{"iter": 0}})
	b.Emit(Event{TaskID: "t1", Type: TaskFinished, Payload: map[string]any{"status": "succeeded"}})

	got := drain(t, ch)
	assert.Equal(t, []Type{TaskStarted, IterStarted, TaskFinished}, types(got))
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestBus_LateSubscriberGetsReplay(t *testing.T) {
	b := NewBus()
	b.Emit(Event{TaskID: "t1", Type: TaskStarted})
	b.Emit(Event{TaskID: "t1", Type: TaskFinished})

	ch, cancel, _ := b.Subscribe("t1")
	defer cancel()
	assert.Equal(t, []Type{TaskStarted, TaskFinished}, types(drain(t, ch)))

	// Events after the terminal event are ignored.
	b.Emit(Event{TaskID: "t1", Type: IterStarted})
	assert.Len(t, b.History("t1"), 2)
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus()
	b.buffer = 1
	ch, cancel, _ := b.Subscribe("t1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Emit(Event{TaskID: "t1", Type: ToolCalled})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
	require.Len(t, ch, 1)
}

func TestBus_CancelClosesChannel(t *testing.T) {
	b := NewBus()
	ch, cancel, _ := b.Subscribe("t1")
	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	b.Emit(Event{TaskID: "t1", Type: TaskStarted})
}

func TestBus_SubscribeReportsFreshTopic(t *testing.T) {
	b := NewBus()

	_, cancel, fresh := b.Subscribe("t1")
	assert.True(t, fresh)
	cancel()
	assert.Empty(t, b.topics, "an unused topic must not outlive its subscriber")

	b.Emit(Event{TaskID: "t1", Type: TaskStarted})
	_, cancel, fresh = b.Subscribe("t1")
	defer cancel()
	assert.False(t, fresh)

	// A retired topic looks like a task nobody has emitted for.
	b.Emit(Event{TaskID: "t2", Type: TaskFinished})
	b.forget("t2")
	ch, cancel2, fresh := b.Subscribe("t2")
	assert.True(t, fresh)
	assert.Empty(t, ch)
	cancel2()
	_, ok := b.topics["t2"]
	assert.False(t, ok)
}

func TestFanout_IsolatesPanics(t *testing.T) {
	var got []Type
	f := NewFanout(nil,
		SinkFunc(func(Event) { panic("boom") }),
		SinkFunc(func(e Event) { got = append(got, e.Type) }),
	)
	assert.NotPanics(t, func() { f.Emit(Event{TaskID: "t1", Type: TaskStarted}) })
	assert.Equal(t, []Type{TaskStarted}, got)
}
