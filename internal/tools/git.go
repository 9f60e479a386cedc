package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/go-git/go-git/v5"
)

// runGit executes git directly. It is internal plumbing for the patch and
// diff tools, so it does not go through the command allow-list.
func runGit(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	return out.String(), errOut.String(), err
}

// IsRepository reports whether dir is inside a git work tree.
func IsRepository(dir string) (bool, error) {
	_, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, git.ErrRepositoryNotExists):
		return false, nil
	default:
		return false, fmt.Errorf("open repository %s: %w", dir, err)
	}
}

// Diff returns the unstaged working tree diff of the repository containing
// dir. Outside a repository the diff is empty.
func Diff(ctx context.Context, dir string) (string, error) {
	ok, err := IsRepository(dir)
	if err != nil || !ok {
		return "", err
	}
	out, stderr, err := runGit(ctx, dir, "diff")
	if err != nil {
		return "", fmt.Errorf("git diff: %w: %s", err, stderr)
	}
	return out, nil
}

// GitDiffTool reports uncommitted changes in the workspace.
type GitDiffTool struct {
	guard      Guard
	defaultCwd string
}

func NewGitDiffTool(guard Guard, defaultCwd string) *GitDiffTool {
	return &GitDiffTool{guard: guard, defaultCwd: defaultCwd}
}

func (t *GitDiffTool) Kind() Kind { return KindGitDiff }

func (t *GitDiffTool) Name() string { return KindGitDiff.String() }

func (t *GitDiffTool) Description() string {
	return "Show the unstaged git diff of the workspace."
}

func (t *GitDiffTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cwd": map[string]any{"type": "string", "description": "Directory inside the repository (defaults to the workspace root)"},
		},
	}
}

func (t *GitDiffTool) Execute(ctx context.Context, args Args) (Output, error) {
	a, ok := args.(GitDiffArgs)
	if !ok {
		return nil, mismatchedArgs(KindGitDiff, args)
	}
	cwd := a.Cwd
	if cwd == "" {
		cwd = t.defaultCwd
	}
	if err := t.guard.CheckPath(cwd); err != nil {
		return nil, err
	}
	diff, err := Diff(ctx, cwd)
	if err != nil {
		return nil, err
	}
	return Output{"diff": diff}, nil
}
