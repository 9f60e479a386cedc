package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/observability"
	"github.com/rahul/agentic/internal/store"
	"github.com/rahul/agentic/internal/tools"
)

// PlanContext is what the planner knows about the task besides the evidence.
type PlanContext struct {
	Task      *store.Task `json:"task"`
	Workspace string      `json:"workspace"`
}

// Planner turns a failing verification into a plan.
type Planner interface {
	Plan(ctx context.Context, pc PlanContext, evidence string) (*Plan, error)
}

// PlannerFunc adapts a function to Planner.
type PlannerFunc func(ctx context.Context, pc PlanContext, evidence string) (*Plan, error)

func (f PlannerFunc) Plan(ctx context.Context, pc PlanContext, evidence string) (*Plan, error) {
	return f(ctx, pc, evidence)
}

// PlannerError wraps any failure to obtain a usable plan. It aborts the task.
type PlannerError struct {
	Err error
}

func (e *PlannerError) Error() string {
	return fmt.Sprintf("planner: %v", e.Err)
}

func (e *PlannerError) Unwrap() error { return e.Err }

// NullPlanner is used when no LLM is configured. It never proposes steps, so
// a task with a failing DoD runs its iterations and fails with artifacts.
type NullPlanner struct{}

func (NullPlanner) Plan(ctx context.Context, pc PlanContext, evidence string) (*Plan, error) {
	return &Plan{
		Intent:      DefaultIntent,
		PlanSummary: "LLM not configured; returning an empty plan",
		Steps:       []ToolStep{},
		RiskNotes:   []string{"LLM API not configured"},
		DoneWhen:    "DoD passes",
	}, nil
}

const proposePlanTool = "propose_plan"

// LLMPlanner asks a chat model for a plan through a propose_plan tool call.
type LLMPlanner struct {
	Model    llms.Model
	Registry *tools.Registry
	Prompts  *PromptManager
	Logger   *zap.Logger
}

func NewLLMPlanner(model llms.Model, registry *tools.Registry, prompts *PromptManager, logger *zap.Logger) *LLMPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMPlanner{Model: model, Registry: registry, Prompts: prompts, Logger: logger.Named("planner")}
}

func (b *LLMPlanner) Plan(ctx context.Context, pc PlanContext, evidence string) (*Plan, error) {
	start := time.Now()
	plan, err := b.plan(ctx, pc, evidence)
	observability.ObservePlanner(time.Since(start), err)
	if err != nil {
		return nil, &PlannerError{Err: err}
	}
	return plan, nil
}

func (b *LLMPlanner) plan(ctx context.Context, pc PlanContext, evidence string) (*Plan, error) {
	systemPrompt, err := b.Prompts.BuildPlannerPrompt(b.Registry.Tools())
	if err != nil {
		return nil, err
	}
	contextJSON, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding context: %w", err)
	}
	var taskID string
	if pc.Task != nil {
		taskID = pc.Task.ID
	}
	userPrompt := fmt.Sprintf("## Context\n%s\n\n## Evidence (tail of the failing verification)\n%s", contextJSON, evidence)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := b.Model.GenerateContent(ctx, messages, llms.WithTools(b.plannerTools()))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}
	choice := resp.Choices[0]

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name != proposePlanTool {
			continue
		}
		b.Logger.Debug("plan proposed", zap.String("task_id", taskID), zap.String("arguments", tc.FunctionCall.Arguments))
		plan, err := ParsePlan(tc.FunctionCall.Arguments)
		if err != nil {
			return nil, fmt.Errorf("failed to parse propose_plan arguments: %w", err)
		}
		return plan, nil
	}

	if choice.Content != "" {
		b.Logger.Debug("plan returned as text", zap.String("task_id", taskID))
		return ParsePlan(choice.Content)
	}
	return nil, errors.New("planner failed to provide a plan")
}

func (b *LLMPlanner) plannerTools() []llms.Tool {
	names := make([]string, 0, len(tools.Kinds()))
	for _, k := range tools.Kinds() {
		names = append(names, k.String())
	}
	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        proposePlanTool,
				Description: "Submit a remediation plan: an ordered list of tool steps expected to make the verification command pass.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"intent": map[string]any{
							"type": "string",
						},
						"plan_summary": map[string]any{
							"type": "string",
						},
						"steps": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"tool": map[string]any{
										"type": "string",
										"enum": names,
									},
									"args": map[string]any{
										"type": "object",
									},
									"why": map[string]any{
										"type": "string",
									},
								},
								"required": []string{"tool", "args", "why"},
							},
						},
						"risk_notes": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"done_when": map[string]any{
							"type": "string",
						},
					},
					"required": []string{"plan_summary", "steps", "risk_notes", "done_when"},
				},
			},
		},
	}
}
