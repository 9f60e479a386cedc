package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/events"
	"github.com/rahul/agentic/internal/store"
)

const sendTimeout = 15 * time.Second

// Target is a messenger and the chat it reports to.
type Target struct {
	Messenger Messenger
	ChatID    string
}

// TaskGetter loads task details for the message body.
type TaskGetter interface {
	GetTask(ctx context.Context, id string) (*store.Task, error)
}

// Notifier is an events.Sink that announces finished tasks. Messages are
// sent in the background so Emit never waits on the network.
type Notifier struct {
	targets []Target
	tasks   TaskGetter
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewNotifier(tasks TaskGetter, logger *zap.Logger, targets ...Target) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{targets: targets, tasks: tasks, logger: logger.Named("notifier")}
}

func (n *Notifier) Emit(evt events.Event) {
	if evt.Type != events.TaskFinished || len(n.targets) == 0 {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		text := n.format(ctx, evt)
		for _, t := range n.targets {
			if err := t.Messenger.Send(t.ChatID, text); err != nil {
				n.logger.Warn("notification failed", zap.String("gateway", t.Messenger.Name()), zap.String("task_id", evt.TaskID), zap.Error(err))
			}
		}
	}()
}

// Close waits for pending notifications and stops every messenger.
func (n *Notifier) Close() error {
	n.wg.Wait()
	var errs []string
	for _, t := range n.targets {
		if err := t.Messenger.Stop(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", t.Messenger.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("stopping gateways: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (n *Notifier) format(ctx context.Context, evt events.Event) string {
	status, _ := evt.Payload["status"].(string)
	icon := "❌"
	if status == string(store.StatusSucceeded) {
		icon = "✅"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Task %s %s", icon, evt.TaskID, status)
	if n.tasks != nil {
		if task, err := n.tasks.GetTask(ctx, evt.TaskID); err == nil {
			fmt.Fprintf(&b, "\nDoD: %s", task.DodCommand)
			if task.Instruction != "" {
				fmt.Fprintf(&b, "\nInstruction: %s", task.Instruction)
			}
		}
	}
	if msg, ok := evt.Payload["error"].(string); ok && msg != "" {
		fmt.Fprintf(&b, "\nError: %s", msg)
	}
	return b.String()
}
