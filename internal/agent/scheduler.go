package agent

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/store"
)

// TaskCreator persists new tasks.
type TaskCreator interface {
	CreateTask(ctx context.Context, in store.NewTask) (*store.Task, error)
}

// TaskRunner drives a persisted task to completion.
type TaskRunner interface {
	Run(ctx context.Context, taskID string) error
}

// Dispatcher starts one background worker per submitted task.
type Dispatcher struct {
	store  TaskCreator
	runner TaskRunner
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(st TaskCreator, runner TaskRunner, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: st, runner: runner, logger: logger.Named("dispatcher")}
}

// Submit creates the task in the queued state and returns it at once. The
// worker keeps running after ctx is cancelled; tasks are not interrupted
// mid-flight.
func (d *Dispatcher) Submit(ctx context.Context, in store.NewTask) (*store.Task, error) {
	task, err := d.store.CreateTask(ctx, in)
	if err != nil {
		return nil, err
	}

	workerCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("task worker panicked", zap.String("task_id", task.ID), zap.Any("panic", r))
			}
		}()
		if err := d.runner.Run(workerCtx, task.ID); err != nil {
			d.logger.Error("task ended with error", zap.String("task_id", task.ID), zap.Error(err))
		}
	}()

	d.logger.Info("task submitted", zap.String("task_id", task.ID))
	return task, nil
}

// Wait blocks until every submitted task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
