package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestTask(t *testing.T, s *Store) *Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), NewTask{
		Instruction:   "fix add",
		DodCommand:    "pytest -q",
		WorkspacePath: "/workspace",
		MaxIters:      3,
		TimeoutSec:    60,
	})
	require.NoError(t, err)
	return task
}

func TestStore_TaskRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := createTestTask(t, s)
	assert.Equal(t, StatusQueued, created.Status)

	got, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "pytest -q", got.DodCommand)
	assert.Equal(t, 3, got.MaxIters)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	_, err = s.GetTask(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_StatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := createTestTask(t, s)

	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, task.ID, StatusSucceeded), ErrInvalidTransition)
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, StatusRunning))
	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, task.ID, StatusRunning), ErrInvalidTransition)
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, StatusSucceeded))

	// Terminal states are absorbing.
	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, task.ID, StatusRunning), ErrInvalidTransition)
	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, task.ID, StatusFailed), ErrInvalidTransition)
	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, task.ID, StatusQueued), ErrInvalidTransition)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)

	assert.ErrorIs(t, s.UpdateTaskStatus(ctx, "missing", StatusRunning), ErrNotFound)
}

func TestStore_RunsFinalizeOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := createTestTask(t, s)

	r0, err := s.CreateRun(ctx, task.ID, 0)
	require.NoError(t, err)
	r1, err := s.CreateRun(ctx, task.ID, 1)
	require.NoError(t, err)

	require.NoError(t, s.FinishRun(ctx, r0.ID, RunFail, `{"plan":{}}`))
	assert.ErrorIs(t, s.FinishRun(ctx, r0.ID, RunOK, "again"), ErrNotFound)
	assert.Error(t, s.FinishRun(ctx, r1.ID, RunRunning, ""))

	runs, err := s.ListRuns(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 0, runs[0].Iter)
	assert.Equal(t, RunFail, runs[0].Result)
	assert.Equal(t, `{"plan":{}}`, runs[0].Summary)
	require.NotNil(t, runs[0].EndedAt)
	assert.Equal(t, RunRunning, runs[1].Result)
	assert.Nil(t, runs[1].EndedAt)
}

func TestStore_ToolCallsAndArtifacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := createTestTask(t, s)
	run, err := s.CreateRun(ctx, task.ID, 0)
	require.NoError(t, err)

	call := &ToolCall{
		RunID:    run.ID,
		ToolName: "read_file",
		Input:    map[string]any{"path": "/workspace/a.py"},
		Output:   map[string]any{"error": "boom"},
		OK:       false,
	}
	require.NoError(t, s.RecordToolCall(ctx, call))
	assert.NotEmpty(t, call.ID)

	calls, err := s.ListToolCalls(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "read_file", calls[0].ToolName)
	assert.Equal(t, "boom", calls[0].Output["error"])
	assert.False(t, calls[0].OK)

	_, err = s.RecordArtifact(ctx, task.ID, ArtifactLog, "/agent_data/artifacts/x/verify.log")
	require.NoError(t, err)
	_, err = s.RecordArtifact(ctx, task.ID, ArtifactReport, "/agent_data/artifacts/x/report.md")
	require.NoError(t, err)

	artifacts, err := s.ListArtifacts(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, ArtifactLog, artifacts[0].Type)
	assert.Equal(t, ArtifactReport, artifacts[1].Type)
}

func TestStore_ListTasks(t *testing.T) {
	s := newTestStore(t)
	first := createTestTask(t, s)
	second := createTestTask(t, s)

	tasks, err := s.ListTasks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
}
