// Package store persists tasks, runs, tool calls and artifacts in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed persistence layer. It is safe for concurrent use;
// writes are serialized through a single connection.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path. Use ":memory:" for an
// ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateTask(ctx context.Context, in NewTask) (*Task, error) {
	t := &Task{
		ID:            uuid.NewString(),
		Instruction:   in.Instruction,
		DodCommand:    in.DodCommand,
		WorkspacePath: in.WorkspacePath,
		MaxIters:      in.MaxIters,
		TimeoutSec:    in.TimeoutSec,
		Status:        StatusQueued,
		CreatedAt:     s.now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, created_at, status, instruction, dod_command, workspace_path, max_iters, timeout_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, formatTime(t.CreatedAt), string(t.Status), t.Instruction, t.DodCommand, t.WorkspacePath, t.MaxIters, t.TimeoutSec,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, status, instruction, dod_command, workspace_path, max_iters, timeout_sec
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTasks returns the most recent tasks first.
func (s *Store) ListTasks(ctx context.Context, limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, status, instruction, dod_command, workspace_path, max_iters, timeout_sec
		FROM tasks ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus moves a task to status. Only queued->running,
// running->{succeeded,failed} and queued->failed are accepted; anything else
// returns ErrInvalidTransition and leaves the row untouched.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) error {
	from, ok := transitions[status]
	if !ok {
		return fmt.Errorf("%w: to %s", ErrInvalidTransition, status)
	}
	placeholders := make([]string, len(from))
	args := []any{string(status), id}
	for i, f := range from {
		placeholders[i] = "?"
		args = append(args, string(f))
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	current, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
}

// CreateRun opens the run record for one iteration.
func (s *Store) CreateRun(ctx context.Context, taskID string, iter int) (*Run, error) {
	r := &Run{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Iter:      iter,
		StartedAt: s.now(),
		Result:    RunRunning,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, task_id, iter, started_at, result, summary)
		VALUES (?, ?, ?, ?, ?, '')`,
		r.ID, r.TaskID, r.Iter, formatTime(r.StartedAt), string(r.Result))
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return r, nil
}

// FinishRun finalizes a run. A run can be finished only once.
func (s *Store) FinishRun(ctx context.Context, runID string, result RunResult, summary string) error {
	if result != RunOK && result != RunFail {
		return fmt.Errorf("invalid run result %q", result)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET ended_at = ?, result = ?, summary = ?
		WHERE id = ? AND result = ?`,
		formatTime(s.now()), string(result), summary, runID, string(RunRunning))
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// ListRuns returns a task's runs in iteration order.
func (s *Store) ListRuns(ctx context.Context, taskID string) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, iter, started_at, ended_at, result, summary
		FROM runs WHERE task_id = ? ORDER BY iter`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		var (
			r               Run
			started, result string
			ended           sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Iter, &started, &ended, &result, &r.Summary); err != nil {
			return nil, err
		}
		r.Result = RunResult(result)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if ended.Valid {
			t, err := parseTime(ended.String)
			if err != nil {
				return nil, err
			}
			r.EndedAt = &t
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// RecordToolCall appends a tool call. ID is assigned when empty.
func (s *Store) RecordToolCall(ctx context.Context, c *ToolCall) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	in, err := json.Marshal(c.Input)
	if err != nil {
		return fmt.Errorf("encoding tool input: %w", err)
	}
	out, err := json.Marshal(c.Output)
	if err != nil {
		return fmt.Errorf("encoding tool output: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (id, run_id, tool_name, input_json, output_json, started_at, ended_at, ok)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RunID, c.ToolName, string(in), string(out), formatTime(c.StartedAt), formatTime(c.EndedAt), c.OK)
	if err != nil {
		return fmt.Errorf("inserting tool call: %w", err)
	}
	return nil
}

func (s *Store) ListToolCalls(ctx context.Context, runID string) ([]*ToolCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, tool_name, input_json, output_json, started_at, ended_at, ok
		FROM tool_calls WHERE run_id = ? ORDER BY started_at, rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := []*ToolCall{}
	for rows.Next() {
		var (
			c              ToolCall
			in, out        string
			started, ended string
		)
		if err := rows.Scan(&c.ID, &c.RunID, &c.ToolName, &in, &out, &started, &ended, &c.OK); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(in), &c.Input); err != nil {
			return nil, fmt.Errorf("decoding tool input: %w", err)
		}
		if err := json.Unmarshal([]byte(out), &c.Output); err != nil {
			return nil, fmt.Errorf("decoding tool output: %w", err)
		}
		if c.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if c.EndedAt, err = parseTime(ended); err != nil {
			return nil, err
		}
		calls = append(calls, &c)
	}
	return calls, rows.Err()
}

func (s *Store) RecordArtifact(ctx context.Context, taskID string, typ ArtifactType, path string) (*Artifact, error) {
	a := &Artifact{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Type:      typ,
		Path:      path,
		CreatedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, task_id, type, path, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, string(a.Type), a.Path, formatTime(a.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting artifact: %w", err)
	}
	return a, nil
}

func (s *Store) ListArtifacts(ctx context.Context, taskID string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, type, path, created_at
		FROM artifacts WHERE task_id = ? ORDER BY created_at, rowid`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts := []*Artifact{}
	for rows.Next() {
		var (
			a            Artifact
			typ, created string
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &typ, &a.Path, &created); err != nil {
			return nil, err
		}
		a.Type = ArtifactType(typ)
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, &a)
	}
	return artifacts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t               Task
		created, status string
	)
	if err := row.Scan(&t.ID, &created, &status, &t.Instruction, &t.DodCommand, &t.WorkspacePath, &t.MaxIters, &t.TimeoutSec); err != nil {
		return nil, err
	}
	t.Status = TaskStatus(status)
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
