package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/agentic/internal/governance"
	"github.com/rahul/agentic/internal/store"
	"github.com/rahul/agentic/internal/tools"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func newTestPlanner(model llms.Model) *LLMPlanner {
	policy := governance.NewPolicy(governance.Config{WorkspaceRoot: "/ws"})
	registry := tools.NewRegistry(tools.Deps{Guard: policy, WorkspaceRoot: "/ws"})
	return NewLLMPlanner(model, registry, &PromptManager{}, nil)
}

func TestLLMPlanner_ToolCall(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "propose_plan",
				Arguments: `{"plan_summary":"fix","steps":[{"tool":"git_diff","args":{},"why":"inspect"}],"risk_notes":[],"done_when":"green"}`,
			},
		}},
	}}}}
	p := newTestPlanner(model)

	task := &store.Task{ID: "t1", DodCommand: "go test ./..."}
	plan, err := p.Plan(context.Background(), PlanContext{Task: task, Workspace: "/ws"}, "FAIL: TestAdd")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "git_diff", plan.Steps[0].Tool)

	require.Len(t, model.messages, 2)
	system := model.messages[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, system, "## Available Tools:")
	assert.Contains(t, system, "- apply_patch:")
	user := model.messages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, user, "FAIL: TestAdd")
	assert.Contains(t, user, "go test ./...")
}

func TestLLMPlanner_TextFallback(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content: "```json\n{\"plan_summary\":\"nothing\",\"steps\":[],\"risk_notes\":[],\"done_when\":\"x\"}\n```",
	}}}}
	plan, err := newTestPlanner(model).Plan(context.Background(), PlanContext{Workspace: "/ws"}, "")
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
}

func TestLLMPlanner_Errors(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{name: "transport", model: &fakeModel{err: errors.New("connection refused")}},
		{name: "no choices", model: &fakeModel{resp: &llms.ContentResponse{}}},
		{name: "empty answer", model: &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{}}}}},
		{name: "bad arguments", model: &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{FunctionCall: &llms.FunctionCall{Name: "propose_plan", Arguments: `{"plan_summary":"no steps"}`}}},
		}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestPlanner(tt.model).Plan(context.Background(), PlanContext{}, "evidence")
			var pe *PlannerError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestNullPlanner(t *testing.T) {
	plan, err := NullPlanner{}.Plan(context.Background(), PlanContext{}, "")
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
	assert.Equal(t, []string{"LLM API not configured"}, plan.RiskNotes)
}
