package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/governance"
	"github.com/rahul/agentic/internal/tools"
)

// StepResult is the outcome of one plan step.
type StepResult struct {
	Tool   string         `json:"tool"`
	Output map[string]any `json:"output"`
	OK     bool           `json:"ok"`
}

// StepRecord is what the executor hands to the record callback per step.
type StepRecord struct {
	RunID     string
	Tool      string
	Args      map[string]any
	Output    map[string]any
	OK        bool
	StartedAt time.Time
	EndedAt   time.Time
}

// RecordFunc persists a step outcome.
type RecordFunc func(ctx context.Context, rec StepRecord) error

// ToolGate is consulted before each step runs.
type ToolGate interface {
	Evaluate(ctx context.Context, req governance.Request) (governance.Result, error)
}

// Executor runs plan steps in order against the tool registry.
type Executor struct {
	registry *tools.Registry
	gate     ToolGate
	logger   *zap.Logger
}

func NewExecutor(registry *tools.Registry, gate ToolGate, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, gate: gate, logger: logger.Named("executor")}
}

// Execute runs every step sequentially. A failing step never stops the
// steps after it: its error becomes {"error": message} with ok=false. Every
// outcome is passed to record before Execute returns.
func (e *Executor) Execute(ctx context.Context, plan *Plan, runID string, record RecordFunc) []StepResult {
	results := make([]StepResult, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		started := time.Now().UTC()
		output, err := e.runStep(ctx, step)
		ended := time.Now().UTC()

		ok := err == nil
		if !ok {
			output = map[string]any{"error": err.Error()}
			e.logger.Info("step failed", zap.String("run_id", runID), zap.Int("step", i), zap.String("tool", step.Tool), zap.Error(err))
		} else {
			e.logger.Debug("step succeeded", zap.String("run_id", runID), zap.Int("step", i), zap.String("tool", step.Tool))
		}
		if output == nil {
			output = map[string]any{}
		}

		if record != nil {
			rec := StepRecord{
				RunID:     runID,
				Tool:      step.Tool,
				Args:      step.Args,
				Output:    output,
				OK:        ok,
				StartedAt: started,
				EndedAt:   ended,
			}
			if err := record(ctx, rec); err != nil {
				e.logger.Warn("failed to record tool call", zap.String("run_id", runID), zap.String("tool", step.Tool), zap.Error(err))
			}
		}
		results = append(results, StepResult{Tool: step.Tool, Output: output, OK: ok})
	}
	return results
}

// runStep binds and invokes one step, converting panics into errors.
func (e *Executor) runStep(ctx context.Context, step ToolStep) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("tool %s panicked: %v", step.Tool, r)
		}
	}()

	if e.gate != nil {
		res, err := e.gate.Evaluate(ctx, governance.Request{Tool: step.Tool})
		if err != nil {
			return nil, err
		}
		if res.Effect == governance.EffectDeny {
			return nil, fmt.Errorf("%w: %s", governance.ErrPolicyViolation, res.Reason)
		}
	}

	call, err := e.registry.Bind(step.Tool, step.Args)
	if err != nil {
		return nil, err
	}
	return call.Invoke(ctx)
}
