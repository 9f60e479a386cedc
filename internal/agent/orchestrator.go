package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/events"
	"github.com/rahul/agentic/internal/observability"
	"github.com/rahul/agentic/internal/store"
	"github.com/rahul/agentic/internal/tools"
)

// DefaultPlannerTimeout bounds a single planner call.
const DefaultPlannerTimeout = 2 * time.Minute

// Store is the persistence the orchestrator needs.
type Store interface {
	ArtifactRecorder
	GetTask(ctx context.Context, id string) (*store.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status store.TaskStatus) error
	CreateRun(ctx context.Context, taskID string, iter int) (*store.Run, error)
	FinishRun(ctx context.Context, runID string, result store.RunResult, summary string) error
	RecordToolCall(ctx context.Context, c *store.ToolCall) error
}

// CommandRunner runs the verification command.
type CommandRunner interface {
	Run(ctx context.Context, cmd, workDir string, timeoutSec int, env map[string]string) (tools.Result, error)
}

// Options configures an Orchestrator. Store, Runner, Planner, Executor and
// Artifacts are required.
type Options struct {
	Store          Store
	Runner         CommandRunner
	Planner        Planner
	Executor       *Executor
	Artifacts      *ArtifactWriter
	Sink           events.Sink
	Logger         *zap.Logger
	EvidenceLines  int
	PlannerTimeout time.Duration
}

// Orchestrator drives one task through verify, plan and execute iterations
// until its DoD command passes or the iteration budget runs out.
type Orchestrator struct {
	store          Store
	runner         CommandRunner
	planner        Planner
	executor       *Executor
	artifacts      *ArtifactWriter
	sink           events.Sink
	logger         *zap.Logger
	evidenceLines  int
	plannerTimeout time.Duration
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		store:          opts.Store,
		runner:         opts.Runner,
		planner:        opts.Planner,
		executor:       opts.Executor,
		artifacts:      opts.Artifacts,
		sink:           opts.Sink,
		logger:         opts.Logger,
		evidenceLines:  opts.EvidenceLines,
		plannerTimeout: opts.PlannerTimeout,
	}
	if o.sink == nil {
		o.sink = events.Discard
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	o.logger = o.logger.Named("orchestrator")
	if o.evidenceLines <= 0 {
		o.evidenceLines = DefaultEvidenceLines
	}
	if o.plannerTimeout <= 0 {
		o.plannerTimeout = DefaultPlannerTimeout
	}
	return o
}

// verifyEnv is added to the environment of every DoD run.
var verifyEnv = map[string]string{"PYTHONUNBUFFERED": "1"}

// Run executes the loop for taskID. It returns nil when the task reached a
// terminal status through the normal loop, whether succeeded or failed. A
// non-nil error means the loop was aborted; the task is still marked failed
// and its artifacts are written before Run returns.
func (o *Orchestrator) Run(ctx context.Context, taskID string) error {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := o.store.UpdateTaskStatus(ctx, taskID, store.StatusRunning); err != nil {
		return err
	}
	log := o.logger.With(zap.String("task_id", taskID))
	log.Info("task started", zap.String("dod_command", task.DodCommand), zap.Int("max_iters", task.MaxIters))
	o.emit(taskID, events.TaskStarted, map[string]any{"task_id": taskID})

	var last *tools.Result
	for iter := 0; iter < task.MaxIters; iter++ {
		o.emit(taskID, events.IterStarted, map[string]any{"iter": iter})

		run, err := o.store.CreateRun(ctx, taskID, iter)
		if err != nil {
			return o.abort(ctx, task, "", last, fmt.Errorf("creating run: %w", err))
		}

		res, err := o.runner.Run(ctx, task.DodCommand, task.WorkspacePath, task.TimeoutSec, verifyEnv)
		if err != nil {
			return o.abort(ctx, task, run.ID, last, fmt.Errorf("running verification: %w", err))
		}
		observability.ObserveVerify(res.DurationMs)
		last = &res

		if res.ExitCode == 0 {
			if err := o.store.FinishRun(ctx, run.ID, store.RunOK, "DoD passed"); err != nil {
				return o.abort(ctx, task, "", last, fmt.Errorf("finishing run: %w", err))
			}
			log.Info("verification passed", zap.Int("iter", iter))
			return o.finish(ctx, task, store.StatusSucceeded, res)
		}
		log.Info("verification failed", zap.Int("iter", iter), zap.Int("exit_code", res.ExitCode), zap.Bool("timed_out", res.TimedOut()))

		plan, err := o.plan(ctx, task, ExtractEvidence(res, o.evidenceLines))
		if err != nil {
			return o.abort(ctx, task, run.ID, last, err)
		}

		results := o.executor.Execute(ctx, plan, run.ID, o.recordStep(taskID))
		summary, err := json.Marshal(map[string]any{"plan": plan, "results": results})
		if err != nil {
			return o.abort(ctx, task, run.ID, last, fmt.Errorf("encoding run summary: %w", err))
		}
		if err := o.store.FinishRun(ctx, run.ID, store.RunFail, string(summary)); err != nil {
			return o.abort(ctx, task, "", last, fmt.Errorf("finishing run: %w", err))
		}
		o.emit(taskID, events.IterFinished, map[string]any{"iter": iter, "status": string(store.RunFail)})
	}

	if last == nil {
		last = &tools.Result{ExitCode: -1, Stderr: "no verification was run"}
	}
	log.Info("iteration budget exhausted")
	return o.finish(ctx, task, store.StatusFailed, *last)
}

func (o *Orchestrator) plan(ctx context.Context, task *store.Task, evidence string) (*Plan, error) {
	planCtx, cancel := context.WithTimeout(ctx, o.plannerTimeout)
	defer cancel()

	plan, err := o.planner.Plan(planCtx, PlanContext{Task: task, Workspace: task.WorkspacePath}, evidence)
	if err != nil {
		var pe *PlannerError
		if !errors.As(err, &pe) {
			err = &PlannerError{Err: err}
		}
		return nil, err
	}
	if plan == nil {
		return nil, &PlannerError{Err: errors.New("planner returned no plan")}
	}
	return plan, nil
}

func (o *Orchestrator) recordStep(taskID string) RecordFunc {
	return func(ctx context.Context, rec StepRecord) error {
		o.emit(taskID, events.ToolCalled, map[string]any{"tool": rec.Tool, "ok": rec.OK})
		return o.store.RecordToolCall(ctx, &store.ToolCall{
			RunID:     rec.RunID,
			ToolName:  rec.Tool,
			Input:     rec.Args,
			Output:    rec.Output,
			OK:        rec.OK,
			StartedAt: rec.StartedAt,
			EndedAt:   rec.EndedAt,
		})
	}
}

// finish performs the terminal transition: status, artifacts, then the
// task_finished event.
func (o *Orchestrator) finish(ctx context.Context, task *store.Task, status store.TaskStatus, last tools.Result) error {
	var errs []error
	if err := o.store.UpdateTaskStatus(ctx, task.ID, status); err != nil {
		errs = append(errs, err)
	}
	if err := o.artifacts.Write(ctx, task.ID, task.WorkspacePath, last); err != nil {
		errs = append(errs, err)
	}
	o.emit(task.ID, events.TaskFinished, map[string]any{"status": string(status)})
	o.logger.Info("task finished", zap.String("task_id", task.ID), zap.String("status", string(status)))
	return errors.Join(errs...)
}

// abort ends the task after an infrastructure failure. runID, when set, is
// the open run, which is closed with the error as its summary.
func (o *Orchestrator) abort(ctx context.Context, task *store.Task, runID string, last *tools.Result, cause error) error {
	log := o.logger.With(zap.String("task_id", task.ID))
	log.Error("task aborted", zap.Error(cause))

	if runID != "" {
		if err := o.store.FinishRun(ctx, runID, store.RunFail, cause.Error()); err != nil {
			log.Warn("could not close run", zap.String("run_id", runID), zap.Error(err))
		}
	}
	if err := o.store.UpdateTaskStatus(ctx, task.ID, store.StatusFailed); err != nil {
		log.Warn("could not mark task failed", zap.Error(err))
	}

	res := tools.Result{ExitCode: -1, Stderr: cause.Error()}
	if last != nil {
		res = *last
	}
	if err := o.artifacts.Write(ctx, task.ID, task.WorkspacePath, res); err != nil {
		log.Warn("could not write artifacts", zap.Error(err))
	}
	o.emit(task.ID, events.TaskFinished, map[string]any{"status": string(store.StatusFailed), "error": cause.Error()})
	return cause
}

func (o *Orchestrator) emit(taskID string, typ events.Type, payload map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("event sink panicked", zap.String("task_id", taskID), zap.String("type", string(typ)), zap.Any("panic", r))
		}
	}()
	o.sink.Emit(events.Event{TaskID: taskID, Type: typ, Payload: payload, Timestamp: time.Now().UTC()})
}
