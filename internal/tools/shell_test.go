package tools

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/agentic/internal/governance"
)

func newTestRunner() *Runner {
	policy := governance.NewPolicy(governance.Config{
		WorkspaceRoot:   "/",
		AllowedPrefixes: append([]string{"sleep", "printf"}, governance.DefaultAllowedPrefixes...),
	})
	return NewRunner(policy, nil)
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunner_CapturesOutput(t *testing.T) {
	skipWithoutShell(t)
	r := newTestRunner()

	res, err := r.Run(context.Background(), "echo out; echo err 1>&2", t.TempDir(), 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
}

func TestRunner_NonZeroExit(t *testing.T) {
	skipWithoutShell(t)
	res, err := newTestRunner().Run(context.Background(), "false", t.TempDir(), 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.False(t, res.TimedOut())
}

func TestRunner_EnvOverridesWin(t *testing.T) {
	skipWithoutShell(t)
	t.Setenv("AGENTIC_RUNNER_TEST", "from-parent")

	res, err := newTestRunner().Run(context.Background(), "echo $AGENTIC_RUNNER_TEST $EXTRA_VAR", t.TempDir(), 10,
		map[string]string{"AGENTIC_RUNNER_TEST": "override", "EXTRA_VAR": "x"})
	require.NoError(t, err)
	assert.Equal(t, "override x\n", res.Stdout)
}

func TestRunner_TimeoutKeepsPartialOutput(t *testing.T) {
	skipWithoutShell(t)
	start := time.Now()
	res, err := newTestRunner().Run(context.Background(), "echo partial; sleep 30", t.TempDir(), 1, nil)
	require.NoError(t, err)

	assert.Equal(t, TimeoutExitCode, res.ExitCode)
	assert.True(t, res.TimedOut())
	assert.Equal(t, "partial\n", res.Stdout)
	assert.Equal(t, "timeout", res.Stderr)
	assert.GreaterOrEqual(t, res.DurationMs, int64(1000))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunner_PolicyViolationDoesNotExecute(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	r := newTestRunner()

	_, err := r.Run(context.Background(), "echo hi > marker && sudo true", dir, 10, nil)
	var blocked *governance.CommandBlockedError
	require.True(t, errors.As(err, &blocked))

	_, err = r.Run(context.Background(), "touch marker", dir, 10, nil)
	assert.True(t, errors.Is(err, governance.ErrPolicyViolation))

	res, err := r.Run(context.Background(), "ls", dir, 10, nil)
	require.NoError(t, err)
	assert.False(t, strings.Contains(res.Stdout, "marker"))
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv([]string{"A=1", "B=2", "PATH=/bin"}, map[string]string{"B": "3", "C": "4"})
	assert.Equal(t, []string{"A=1", "PATH=/bin", "B=3", "C=4"}, got)
	assert.Equal(t, []string{"A=1"}, mergeEnv([]string{"A=1"}, nil))
}

func TestRunCmdTool_DefaultsAndPathCheck(t *testing.T) {
	skipWithoutShell(t)
	root := t.TempDir()
	r := newTestRegistry(t, root)

	call, err := r.Bind("run_cmd", map[string]any{"cmd": "ls"})
	require.NoError(t, err)
	out, err := call.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, out["exit_code"])

	call, err = r.Bind("run_cmd", map[string]any{"cmd": "ls", "cwd": "/etc"})
	require.NoError(t, err)
	_, err = call.Invoke(context.Background())
	var denied *governance.PathDeniedError
	assert.True(t, errors.As(err, &denied))
}
