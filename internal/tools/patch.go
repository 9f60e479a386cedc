package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// ApplyPatchTool applies a unified diff with git apply.
type ApplyPatchTool struct {
	guard Guard
}

func NewApplyPatchTool(guard Guard) *ApplyPatchTool {
	return &ApplyPatchTool{guard: guard}
}

func (t *ApplyPatchTool) Kind() Kind { return KindApplyPatch }

func (t *ApplyPatchTool) Name() string { return KindApplyPatch.String() }

func (t *ApplyPatchTool) Description() string {
	return "Apply a unified diff to the tree rooted at root. Paths in the patch are relative to root."
}

func (t *ApplyPatchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"root":  map[string]any{"type": "string", "description": "Directory the patch paths are relative to"},
			"patch": map[string]any{"type": "string", "description": "Unified diff text"},
		},
		"required": []string{"root", "patch"},
	}
}

// Execute applies the patch. A rejected patch is a normal result with
// ok=false and the rejection text, not an error.
func (t *ApplyPatchTool) Execute(ctx context.Context, args Args) (Output, error) {
	a, ok := args.(ApplyPatchArgs)
	if !ok {
		return nil, mismatchedArgs(KindApplyPatch, args)
	}
	if err := t.guard.CheckPath(a.Root); err != nil {
		return nil, err
	}

	patch := a.Patch
	if !strings.HasSuffix(patch, "\n") {
		patch += "\n"
	}
	tmp, err := os.CreateTemp("", "agentic-*.patch")
	if err != nil {
		return nil, fmt.Errorf("create patch file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(patch); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write patch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write patch file: %w", err)
	}

	// --numstat only inspects; it must run before the patch is applied.
	numstat, _, _ := runGit(ctx, a.Root, "apply", "--numstat", tmp.Name())

	_, stderr, err := runGit(ctx, a.Root, "apply", "--whitespace=fix", tmp.Name())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reject := strings.TrimSpace(stderr)
		if reject == "" {
			reject = err.Error()
		}
		return Output{"ok": false, "applied_files": []string{}, "rejects": []string{reject}}, nil
	}
	return Output{"ok": true, "applied_files": parseNumstat(numstat), "rejects": []string{}}, nil
}

// parseNumstat extracts file paths from `git apply --numstat` output.
func parseNumstat(out string) []string {
	files := []string{}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.SplitN(sc.Text(), "\t", 3)
		if len(fields) == 3 && fields[2] != "" {
			files = append(files, fields[2])
		}
	}
	return files
}
