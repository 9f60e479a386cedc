package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/store"
	"github.com/rahul/agentic/internal/tools"
)

const (
	verifyLogName = "verify.log"
	patchName     = "final.patch"
	reportName    = "report.md"
)

// ArtifactRecorder registers written files with persistence.
type ArtifactRecorder interface {
	RecordArtifact(ctx context.Context, taskID string, typ store.ArtifactType, path string) (*store.Artifact, error)
}

// ArtifactWriter writes the final files of a task under <dir>/<task_id>/.
type ArtifactWriter struct {
	dir      string
	recorder ArtifactRecorder
	logger   *zap.Logger
}

func NewArtifactWriter(dir string, recorder ArtifactRecorder, logger *zap.Logger) *ArtifactWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactWriter{dir: dir, recorder: recorder, logger: logger.Named("artifacts")}
}

// Write produces verify.log, final.patch and report.md. final.patch is
// recorded as a patch artifact only when the workspace diff is not blank.
// A failure on one file does not stop the others; all errors are returned.
func (w *ArtifactWriter) Write(ctx context.Context, taskID, workspace string, last tools.Result) error {
	taskDir := filepath.Join(w.dir, taskID)
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}

	var errs []error
	if err := w.writeFile(ctx, taskID, filepath.Join(taskDir, verifyLogName), last.Stdout+"\n"+last.Stderr, store.ArtifactLog, true); err != nil {
		errs = append(errs, err)
	}

	diff, err := tools.Diff(ctx, workspace)
	if err != nil {
		w.logger.Warn("could not compute workspace diff", zap.String("task_id", taskID), zap.Error(err))
		diff = ""
	}
	hasChanges := strings.TrimSpace(diff) != ""
	if err := w.writeFile(ctx, taskID, filepath.Join(taskDir, patchName), diff, store.ArtifactPatch, hasChanges); err != nil {
		errs = append(errs, err)
	}

	if err := w.writeFile(ctx, taskID, filepath.Join(taskDir, reportName), Report(taskID, last.ExitCode, diff), store.ArtifactReport, true); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *ArtifactWriter) writeFile(ctx context.Context, taskID, path, content string, typ store.ArtifactType, record bool) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if !record {
		return nil
	}
	if _, err := w.recorder.RecordArtifact(ctx, taskID, typ, path); err != nil {
		return fmt.Errorf("recording %s artifact: %w", typ, err)
	}
	w.logger.Debug("artifact written", zap.String("task_id", taskID), zap.String("type", string(typ)), zap.String("path", path))
	return nil
}

// Report renders report.md.
func Report(taskID string, exitCode int, diff string) string {
	status := store.StatusFailed
	if exitCode == 0 {
		status = store.StatusSucceeded
	}
	changes := diff
	if strings.TrimSpace(changes) == "" {
		changes = "No changes."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Task Report (%s)\n\n", taskID)
	fmt.Fprintf(&b, "- Status: %s\n\n", status)
	b.WriteString("## Changes\n")
	b.WriteString(changes)
	b.WriteString("\n\n## Verification\n")
	fmt.Fprintf(&b, "Exit code: %d", exitCode)
	return b.String()
}
