package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/agentic/internal/store"
	"github.com/rahul/agentic/internal/tools"
)

func TestReport(t *testing.T) {
	got := Report("t1", 0, "")
	want := "# Task Report (t1)\n\n- Status: succeeded\n\n## Changes\nNo changes.\n\n## Verification\nExit code: 0"
	assert.Equal(t, want, got)

	got = Report("t2", 124, "diff --git a/x b/x\n")
	assert.Contains(t, got, "- Status: failed")
	assert.Contains(t, got, "## Changes\ndiff --git a/x b/x\n")
	assert.Contains(t, got, "Exit code: 124")
}

func newArtifactStore(t *testing.T) (*store.Store, *store.Task) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	task, err := st.CreateTask(context.Background(), store.NewTask{DodCommand: "true", MaxIters: 1, TimeoutSec: 10})
	require.NoError(t, err)
	return st, task
}

func TestArtifactWriter_NoRepository(t *testing.T) {
	st, task := newArtifactStore(t)
	dir := t.TempDir()
	w := NewArtifactWriter(dir, st, nil)

	err := w.Write(context.Background(), task.ID, t.TempDir(), tools.Result{ExitCode: 1, Stdout: "out", Stderr: "err"})
	require.NoError(t, err)

	arts, err := st.ListArtifacts(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, store.ArtifactLog, arts[0].Type)
	assert.Equal(t, store.ArtifactReport, arts[1].Type)

	log, err := os.ReadFile(filepath.Join(dir, task.ID, "verify.log"))
	require.NoError(t, err)
	assert.Equal(t, "out\nerr", string(log))

	patch, err := os.ReadFile(filepath.Join(dir, task.ID, "final.patch"))
	require.NoError(t, err)
	assert.Empty(t, patch)
}

func TestArtifactWriter_WithDiff(t *testing.T) {
	requireTool(t, "git")
	st, task := newArtifactStore(t)
	workspace := t.TempDir()
	initRepo(t, workspace, map[string]string{"main.txt": "one\n"})
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "main.txt"), []byte("two\n"), 0o644))

	dir := t.TempDir()
	w := NewArtifactWriter(dir, st, nil)
	require.NoError(t, w.Write(context.Background(), task.ID, workspace, tools.Result{}))

	arts, err := st.ListArtifacts(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, arts, 3)
	assert.Equal(t, store.ArtifactPatch, arts[1].Type)

	patch, err := os.ReadFile(arts[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(patch), "+two")

	report, err := os.ReadFile(arts[2].Path)
	require.NoError(t, err)
	assert.Contains(t, string(report), "- Status: succeeded")
	assert.Contains(t, string(report), "-one")
}

func TestArtifactWriter_CleanRepository(t *testing.T) {
	requireTool(t, "git")
	st, task := newArtifactStore(t)
	workspace := t.TempDir()
	initRepo(t, workspace, map[string]string{"main.txt": "one\n"})

	dir := t.TempDir()
	w := NewArtifactWriter(dir, st, nil)
	require.NoError(t, w.Write(context.Background(), task.ID, workspace, tools.Result{}))

	arts, err := st.ListArtifacts(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	for _, a := range arts {
		assert.NotEqual(t, store.ArtifactPatch, a.Type)
	}

	info, err := os.Stat(filepath.Join(dir, task.ID, "final.patch"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

// failingRecorder rejects one artifact type and accepts the rest.
type failingRecorder struct {
	fail     store.ArtifactType
	recorded []store.ArtifactType
}

func (r *failingRecorder) RecordArtifact(ctx context.Context, taskID string, typ store.ArtifactType, path string) (*store.Artifact, error) {
	if typ == r.fail {
		return nil, errors.New("disk full")
	}
	r.recorded = append(r.recorded, typ)
	return &store.Artifact{TaskID: taskID, Type: typ, Path: path}, nil
}

func TestArtifactWriter_LogFailureStillWritesReport(t *testing.T) {
	rec := &failingRecorder{fail: store.ArtifactLog}
	dir := t.TempDir()
	w := NewArtifactWriter(dir, rec, nil)

	err := w.Write(context.Background(), "t1", t.TempDir(), tools.Result{ExitCode: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, []store.ArtifactType{store.ArtifactReport}, rec.recorded)
	report, err := os.ReadFile(filepath.Join(dir, "t1", "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "Exit code: 1")
}
