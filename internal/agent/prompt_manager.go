package agent

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahul/agentic/internal/tools"
)

//go:embed prompts/planner.md
var defaultPlannerPrompt string

const plannerPromptFile = "planner.md"

// PromptManager loads prompt overrides from a directory.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// GetPlannerPrompt returns planner.md from the prompts directory, or the
// built-in prompt when the directory or file does not exist.
func (pm *PromptManager) GetPlannerPrompt() (string, error) {
	if pm == nil || pm.Directory == "" {
		return defaultPlannerPrompt, nil
	}
	path := filepath.Join(pm.Directory, plannerPromptFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultPlannerPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read planner prompt: %w", err)
	}
	return string(data), nil
}

// BuildPlannerPrompt appends the tool catalog to the planner prompt.
func (pm *PromptManager) BuildPlannerPrompt(catalog []tools.Tool) (string, error) {
	base, err := pm.GetPlannerPrompt()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))
	b.WriteString("\n\n## Available Tools:\n")
	for _, t := range catalog {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	return b.String(), nil
}
