package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rahul/agentic/internal/events"
	"github.com/rahul/agentic/internal/store"
)

var (
	runInstruction string
	runWorkspace   string
	runMaxIters    int
	runTimeoutSec  int
)

var runCmd = &cobra.Command{
	Use:   "run <dod-command>",
	Short: "Run one task in the foreground",
	Long: `Run one task in the foreground without starting the HTTP API. Progress is
printed as the loop advances; the exit status is non-zero when the task fails.

Examples:
  agentic run "pytest -q" --instruction "fix the failing calculator test"
  agentic run "go test ./..." --workspace /src/project --max-iters 3`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVarP(&runInstruction, "instruction", "i", "Make the verification command pass.", "what the planner should achieve")
	runCmd.Flags().StringVarP(&runWorkspace, "workspace", "w", "", "workspace path (default app.workspace_root)")
	runCmd.Flags().IntVar(&runMaxIters, "max-iters", 0, "iteration budget (default orchestrator.max_iters)")
	runCmd.Flags().IntVar(&runTimeoutSec, "timeout", 0, "DoD timeout in seconds (default orchestrator.timeout_sec)")
}

func runTask(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if runWorkspace != "" {
		abs, err := filepath.Abs(runWorkspace)
		if err != nil {
			return err
		}
		cfg.App.WorkspaceRoot = abs
	}
	if runMaxIters > 0 {
		cfg.Orchestrator.MaxIters = runMaxIters
	}
	if runTimeoutSec > 0 {
		cfg.Orchestrator.TimeoutSec = runTimeoutSec
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	a.events.Add(events.SinkFunc(func(evt events.Event) {
		fmt.Fprintln(out, describeEvent(evt))
	}))

	ctx := cmd.Context()
	task, err := a.store.CreateTask(ctx, store.NewTask{
		Instruction:   runInstruction,
		DodCommand:    args[0],
		WorkspacePath: cfg.App.WorkspaceRoot,
		MaxIters:      cfg.Orchestrator.MaxIters,
		TimeoutSec:    cfg.Orchestrator.TimeoutSec,
	})
	if err != nil {
		return err
	}

	runErr := a.orchestrator.Run(ctx, task.ID)

	final, err := a.store.GetTask(ctx, task.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "artifacts: %s\n", filepath.Join(cfg.ArtifactsDir(), task.ID))
	if runErr != nil {
		return runErr
	}
	if final.Status != store.StatusSucceeded {
		return fmt.Errorf("task %s %s", task.ID, final.Status)
	}
	return nil
}

func describeEvent(evt events.Event) string {
	switch evt.Type {
	case events.IterStarted:
		return fmt.Sprintf("[%s] iteration %v", evt.Type, evt.Payload["iter"])
	case events.ToolCalled:
		return fmt.Sprintf("[%s] %v ok=%v", evt.Type, evt.Payload["tool"], evt.Payload["ok"])
	case events.TaskFinished:
		if msg, ok := evt.Payload["error"]; ok {
			return fmt.Sprintf("[%s] %v: %v", evt.Type, evt.Payload["status"], msg)
		}
		return fmt.Sprintf("[%s] %v", evt.Type, evt.Payload["status"])
	default:
		return fmt.Sprintf("[%s] %s", evt.Type, evt.TaskID)
	}
}
