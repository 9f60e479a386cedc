package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rahul/agentic/internal/events"
)

const heartbeatInterval = 15 * time.Second

// handleEvents streams a task's lifecycle events via Server-Sent Events.
// Buffered history is replayed first; the stream ends after task_finished.
//
//	event: iter_started
//	data: {"task_id":"...","type":"iter_started","payload":{"iter":0},"timestamp":"..."}
func (s *Server) handleEvents(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := s.deps.Store.GetTask(ctx, id); err != nil {
		return storeError(err, "task")
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	ch, cancel, fresh := s.deps.Bus.Subscribe(id)
	defer cancel()

	// Without a topic the bus knows nothing about the task: it has not
	// started yet, or it finished before the retention window and its topic
	// was retired. Status is read after subscribing so a task finishing in
	// between is seen by one of the two.
	if fresh {
		task, err := s.deps.Store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if task.Status.Terminal() {
			return writeEvent(c, events.Event{
				TaskID:    id,
				Type:      events.TaskFinished,
				Payload:   map[string]any{"status": string(task.Status)},
				Timestamp: time.Now().UTC(),
			})
		}
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeEvent(c, evt); err != nil {
				return err
			}
		case <-ticker.C:
			fmt.Fprintf(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()
		case <-ctx.Done():
			return nil
		}
	}
}

func writeEvent(c echo.Context, evt events.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Response(), "event: %s\n", evt.Type)
	fmt.Fprintf(c.Response(), "data: %s\n\n", data)
	c.Response().Flush()
	return nil
}
