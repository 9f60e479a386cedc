package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultIntent labels plans that do not state one.
const DefaultIntent = "fix_code"

// ToolStep is one tool invocation proposed by the planner.
type ToolStep struct {
	Tool string         `json:"tool" validate:"required"`
	Args map[string]any `json:"args"`
	Why  string         `json:"why"`
}

// Plan is the planner's proposed remediation. An empty step list is valid;
// a missing one is not.
type Plan struct {
	Intent      string     `json:"intent"`
	PlanSummary string     `json:"plan_summary"`
	Steps       []ToolStep `json:"steps" validate:"required,dive"`
	RiskNotes   []string   `json:"risk_notes"`
	DoneWhen    string     `json:"done_when"`
}

var planValidate = validator.New(validator.WithRequiredStructEnabled())

// normalize fills defaults so a decoded plan serializes predictably.
func (p *Plan) normalize() {
	if p.Intent == "" {
		p.Intent = DefaultIntent
	}
	if p.RiskNotes == nil {
		p.RiskNotes = []string{}
	}
	for i := range p.Steps {
		if p.Steps[i].Args == nil {
			p.Steps[i].Args = map[string]any{}
		}
	}
}

// Validate reports structural problems in the plan.
func (p *Plan) Validate() error {
	return planValidate.Struct(p)
}

var errNoJSON = errors.New("no JSON object found in planner output")

// ParsePlan extracts a plan from planner output. The JSON object may be
// wrapped in a markdown code fence or preceded by prose.
func ParsePlan(text string) (*Plan, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, errNoJSON
	}

	var p Plan
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &p, nil
}
