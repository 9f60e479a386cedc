package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rahul/agentic/internal/governance"
	"github.com/rahul/agentic/internal/tools"
)

func TestPromptManager_GetPlannerPrompt(t *testing.T) {
	tempDir := t.TempDir()

	pm := NewPromptManager(tempDir)
	prompt, err := pm.GetPlannerPrompt()
	if err != nil {
		t.Fatal(err)
	}
	if prompt != defaultPlannerPrompt {
		t.Error("expected the built-in prompt when planner.md is absent")
	}

	if err := os.WriteFile(filepath.Join(tempDir, "planner.md"), []byte("Custom Planner"), 0644); err != nil {
		t.Fatal(err)
	}
	prompt, err = pm.GetPlannerPrompt()
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "Custom Planner" {
		t.Errorf("expected override, got %q", prompt)
	}
}

func TestPromptManager_BuildPlannerPrompt(t *testing.T) {
	policy := governance.NewPolicy(governance.Config{WorkspaceRoot: "/workspace"})
	registry := tools.NewRegistry(tools.Deps{Guard: policy, WorkspaceRoot: "/workspace"})

	prompt, err := NewPromptManager("").BuildPlannerPrompt(registry.Tools())
	if err != nil {
		t.Fatal(err)
	}

	expectedParts := []string{
		"## Available Tools:",
		"- list_tree:",
		"- apply_patch:",
		"- rag_query:",
	}
	for _, part := range expectedParts {
		if !strings.Contains(prompt, part) {
			t.Errorf("Prompt missing expected part: %s", part)
		}
	}

	// Verify order
	if strings.Index(prompt, "propose_plan") >= strings.Index(prompt, "## Available Tools:") {
		t.Error("base prompt should come before the tool catalog")
	}
}
