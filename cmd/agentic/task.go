package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rahul/agentic/internal/api"
	"github.com/rahul/agentic/internal/events"
	"github.com/rahul/agentic/internal/store"
)

var (
	submitInstruction string
	submitWorkspace   string
	submitMaxIters    int
	submitTimeoutSec  int
	submitFollow      bool
	listLimit         int
)

func init() {
	taskCmd.AddCommand(taskSubmitCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskRunsCmd)
	taskCmd.AddCommand(taskArtifactsCmd)
	taskCmd.AddCommand(taskPatchCmd)
	taskCmd.AddCommand(taskEventsCmd)

	taskSubmitCmd.Flags().StringVarP(&submitInstruction, "instruction", "i", "", "what the planner should achieve (required)")
	taskSubmitCmd.Flags().StringVarP(&submitWorkspace, "workspace", "w", "", "workspace path (default: server workspace root)")
	taskSubmitCmd.Flags().IntVar(&submitMaxIters, "max-iters", 0, "iteration budget (default: server setting)")
	taskSubmitCmd.Flags().IntVar(&submitTimeoutSec, "timeout", 0, "DoD timeout in seconds (default: server setting)")
	taskSubmitCmd.Flags().BoolVarP(&submitFollow, "follow", "f", false, "stream events until the task finishes")
	_ = taskSubmitCmd.MarkFlagRequired("instruction")

	taskListCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of tasks to return")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Submit and inspect tasks on a running server",
	Long: `Submit and inspect tasks on a running agentic server (see --server).

Examples:
  # Submit a task and follow its progress
  agentic task submit "pytest -q" -i "fix the failing calculator test" -f

  # Inspect a task
  agentic task status <task-id>
  agentic task runs <task-id> -o yaml

  # Print the final patch
  agentic task patch <task-id> > fix.patch`,
}

var taskSubmitCmd = &cobra.Command{
	Use:   "submit <dod-command>",
	Short: "Submit a new task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskSubmit,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show a task's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out api.TaskStatus
		return getAndPrint(cmd, "/tasks/"+url.PathEscape(args[0]), &out)
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var out []store.Task
		return getAndPrint(cmd, "/tasks?limit="+strconv.Itoa(listLimit), &out)
	},
}

var taskRunsCmd = &cobra.Command{
	Use:   "runs <task-id>",
	Short: "List a task's iterations and tool calls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out []map[string]any
		return getAndPrint(cmd, "/tasks/"+url.PathEscape(args[0])+"/runs", &out)
	},
}

var taskArtifactsCmd = &cobra.Command{
	Use:   "artifacts <task-id>",
	Short: "List a task's artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out []api.ArtifactInfo
		return getAndPrint(cmd, "/tasks/"+url.PathEscape(args[0])+"/artifacts", &out)
	},
}

var taskPatchCmd = &cobra.Command{
	Use:   "patch <task-id>",
	Short: "Print the final patch of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		client := newAPIClient(serverURL)
		if err := client.do(cmd.Context(), http.MethodGet, "/tasks/"+url.PathEscape(args[0])+"/artifacts/patch", nil, &raw); err != nil {
			return err
		}
		_, err := cmd.OutOrStdout().Write(raw)
		return err
	},
}

var taskEventsCmd = &cobra.Command{
	Use:   "events <task-id>",
	Short: "Stream a task's lifecycle events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return followTask(cmd, args[0])
	},
}

func runTaskSubmit(cmd *cobra.Command, args []string) error {
	req := map[string]any{
		"instruction": submitInstruction,
		"dod_command": args[0],
	}
	if submitWorkspace != "" {
		req["workspace_path"] = submitWorkspace
	}
	if submitMaxIters > 0 {
		req["max_iters"] = submitMaxIters
	}
	if submitTimeoutSec > 0 {
		req["timeout_sec"] = submitTimeoutSec
	}

	var resp api.TaskResponse
	client := newAPIClient(serverURL)
	if err := client.do(cmd.Context(), http.MethodPost, "/tasks", req, &resp); err != nil {
		return err
	}
	if err := printOutput(cmd.OutOrStdout(), outputFormat, resp); err != nil {
		return err
	}
	if !submitFollow {
		return nil
	}
	return followTask(cmd, resp.ID)
}

// followTask prints events until task_finished and fails when the task did.
func followTask(cmd *cobra.Command, taskID string) error {
	out := cmd.OutOrStdout()
	var final string
	err := newAPIClient(serverURL).streamEvents(cmd.Context(), taskID, func(data string) error {
		var evt events.Event
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return fmt.Errorf("decoding event: %w", err)
		}
		fmt.Fprintln(out, describeEvent(evt))
		if evt.Type == events.TaskFinished {
			final, _ = evt.Payload["status"].(string)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if final != "" && final != string(store.StatusSucceeded) {
		return fmt.Errorf("task %s %s", taskID, final)
	}
	return nil
}

func getAndPrint(cmd *cobra.Command, path string, out any) error {
	if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, path, nil, out); err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), outputFormat, out)
}
