package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		steps   int
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"plan_summary":"s","steps":[{"tool":"git_diff","args":{},"why":"look"}],"risk_notes":[],"done_when":"tests pass"}`,
			steps: 1,
		},
		{
			name:  "code fence",
			input: "```json\n{\"plan_summary\":\"s\",\"steps\":[],\"risk_notes\":[],\"done_when\":\"x\"}\n```",
			steps: 0,
		},
		{
			name:  "leading prose",
			input: "Here is my plan:\n{\"plan_summary\":\"s\",\"steps\":[{\"tool\":\"run_cmd\",\"args\":{\"cmd\":\"go test ./...\"},\"why\":\"w\"}],\"risk_notes\":[],\"done_when\":\"x\"}\nGood luck.",
			steps: 1,
		},
		{name: "no json", input: "I cannot help with that.", wantErr: true},
		{name: "missing steps", input: `{"plan_summary":"s"}`, wantErr: true},
		{name: "step without tool", input: `{"steps":[{"args":{}}]}`, wantErr: true},
		{name: "truncated", input: `{"steps":[`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParsePlan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, plan.Steps, tt.steps)
		})
	}
}

func TestParsePlan_Defaults(t *testing.T) {
	plan, err := ParsePlan(`{"steps":[{"tool":"git_diff"}]}`)
	require.NoError(t, err)
	assert.Equal(t, DefaultIntent, plan.Intent)
	assert.NotNil(t, plan.RiskNotes)
	assert.NotNil(t, plan.Steps[0].Args)
}
