package store

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusQueued    TaskStatus = "queued"
	StatusRunning   TaskStatus = "running"
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// transitions lists, per target status, the states it may be entered from.
var transitions = map[TaskStatus][]TaskStatus{
	StatusRunning:   {StatusQueued},
	StatusSucceeded: {StatusRunning},
	StatusFailed:    {StatusQueued, StatusRunning},
}

// RunResult is the outcome of one iteration.
type RunResult string

const (
	RunRunning RunResult = "running"
	RunOK      RunResult = "ok"
	RunFail    RunResult = "fail"
)

// ArtifactType classifies a generated output file.
type ArtifactType string

const (
	ArtifactLog    ArtifactType = "log"
	ArtifactPatch  ArtifactType = "patch"
	ArtifactReport ArtifactType = "report"
)

// NewTask holds the caller-supplied fields of a task.
type NewTask struct {
	Instruction   string
	DodCommand    string
	WorkspacePath string
	MaxIters      int
	TimeoutSec    int
}

type Task struct {
	ID            string     `json:"id"`
	Instruction   string     `json:"instruction"`
	DodCommand    string     `json:"dod_command"`
	WorkspacePath string     `json:"workspace_path"`
	MaxIters      int        `json:"max_iters"`
	TimeoutSec    int        `json:"timeout_sec"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Run is one iteration of a task.
type Run struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	Iter      int        `json:"iter"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Result    RunResult  `json:"result"`
	Summary   string     `json:"summary"`
}

// ToolCall records one executed plan step. Rows are never updated.
type ToolCall struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	ToolName  string         `json:"tool_name"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
	OK        bool           `json:"ok"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
}

type Artifact struct {
	ID        string       `json:"id"`
	TaskID    string       `json:"task_id"`
	Type      ArtifactType `json:"type"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"created_at"`
}
