package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TimeoutExitCode is reported when a command exceeds its time budget.
const TimeoutExitCode = 124

// waitDelay bounds how long Wait keeps draining pipes after the process is killed.
const waitDelay = 2 * time.Second

// Result is the outcome of one shell command.
type Result struct {
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"duration_ms"`
}

// TimedOut reports whether the command was cut off by its timeout.
func (r Result) TimedOut() bool {
	return r.ExitCode == TimeoutExitCode
}

// CommandChecker validates a command before it runs.
type CommandChecker interface {
	CheckCommand(cmd string) error
}

// Runner executes shell commands under the sandbox policy.
type Runner struct {
	guard  CommandChecker
	shell  string
	logger *zap.Logger
}

// NewRunner creates a Runner that interprets commands with sh.
func NewRunner(guard CommandChecker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{guard: guard, shell: "sh", logger: logger.Named("runner")}
}

// Run executes cmd in workDir. A policy violation is returned as an error
// and nothing is executed. A timeout is not an error: the result carries
// exit code 124 and whatever output was captured before the kill.
func (r *Runner) Run(ctx context.Context, cmd, workDir string, timeoutSec int, env map[string]string) (Result, error) {
	start := time.Now()
	if err := r.guard.CheckCommand(cmd); err != nil {
		return Result{}, err
	}

	runCtx := ctx
	if timeoutSec > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, r.shell, "-c", cmd)
	c.Dir = workDir
	c.Env = mergeEnv(os.Environ(), env)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	configureProcessGroup(c)
	c.WaitDelay = waitDelay

	r.logger.Debug("running command", zap.String("cmd", cmd), zap.String("dir", workDir), zap.Int("timeout_sec", timeoutSec))
	err := c.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	defer func() {
		r.logger.Debug("command finished", zap.String("cmd", cmd), zap.Int("exit_code", res.ExitCode), zap.Int64("duration_ms", res.DurationMs))
	}()

	switch {
	case err == nil:
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ExitCode = TimeoutExitCode
		if res.Stderr == "" {
			res.Stderr = "timeout"
		}
	case runCtx.Err() != nil:
		res.DurationMs = time.Since(start).Milliseconds()
		return res, runCtx.Err()
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else if errors.Is(err, exec.ErrWaitDelay) && c.ProcessState != nil {
			res.ExitCode = c.ProcessState.ExitCode()
		} else {
			res.DurationMs = time.Since(start).Milliseconds()
			return res, fmt.Errorf("running command: %w", err)
		}
	}
	res.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}

// mergeEnv overlays overrides on base; overrides win on key conflict.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

// RunCmdTool exposes the Runner to plans.
type RunCmdTool struct {
	guard      Guard
	runner     *Runner
	defaultCwd string
	timeoutSec int
}

func NewRunCmdTool(guard Guard, runner *Runner, defaultCwd string, timeoutSec int) *RunCmdTool {
	return &RunCmdTool{guard: guard, runner: runner, defaultCwd: defaultCwd, timeoutSec: timeoutSec}
}

func (t *RunCmdTool) Kind() Kind { return KindRunCmd }

func (t *RunCmdTool) Name() string { return KindRunCmd.String() }

func (t *RunCmdTool) Description() string {
	return "Run an allow-listed shell command (test runners, interpreters, build tools, read-only utilities) in the workspace."
}

func (t *RunCmdTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cmd": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"cwd": map[string]any{
				"type":        "string",
				"description": "Working directory (defaults to the workspace root)",
			},
			"timeout_sec": map[string]any{
				"type":        "integer",
				"description": fmt.Sprintf("Timeout in seconds (default %d)", t.timeoutSec),
			},
			"env": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
				"description":          "Extra environment variables",
			},
		},
		"required": []string{"cmd"},
	}
}

func (t *RunCmdTool) Execute(ctx context.Context, args Args) (Output, error) {
	a, ok := args.(RunCmdArgs)
	if !ok {
		return nil, mismatchedArgs(KindRunCmd, args)
	}
	if t.runner == nil {
		return nil, errors.New("run_cmd: no runner configured")
	}
	cwd := a.Cwd
	if cwd == "" {
		cwd = t.defaultCwd
	}
	if err := t.guard.CheckPath(cwd); err != nil {
		return nil, err
	}
	timeout := a.TimeoutSec
	if timeout == 0 {
		timeout = t.timeoutSec
	}
	res, err := t.runner.Run(ctx, a.Cmd, cwd, timeout, a.Env)
	if err != nil {
		return nil, err
	}
	return Output{
		"exit_code":   res.ExitCode,
		"stdout":      res.Stdout,
		"stderr":      res.Stderr,
		"duration_ms": res.DurationMs,
	}, nil
}
