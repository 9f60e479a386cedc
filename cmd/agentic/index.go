package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rahul/agentic/internal/api"
	"github.com/rahul/agentic/internal/governance"
	"github.com/rahul/agentic/internal/rag"
	"github.com/rahul/agentic/internal/tools"
)

var (
	indexInclude []string
	indexExclude []string
	indexTopK    int
)

func init() {
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexQueryCmd)

	indexRebuildCmd.Flags().StringSliceVar(&indexInclude, "include", api.DefaultIndexInclude, "include globs")
	indexRebuildCmd.Flags().StringSliceVar(&indexExclude, "exclude", api.DefaultIndexExclude, "exclude globs")
	indexQueryCmd.Flags().IntVarP(&indexTopK, "top-k", "k", tools.DefaultTopK, "number of hits")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the local retrieval index",
	Long: `Rebuild or query the retrieval index stored in the data directory. These
commands open the index directly; do not run them while a server is using the
same data directory.

Examples:
  agentic index rebuild /workspace/project --include "**/*.go"
  agentic index query "divide by zero" -k 3`,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild [path]",
	Short: "Re-index a directory (default: the workspace root)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndexRebuild,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Query the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexQuery,
}

func openIndex() (*rag.Index, *governance.Policy, string, error) {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return nil, nil, "", err
	}
	index, err := rag.Open(cfg.IndexPath(), logger)
	if err != nil {
		return nil, nil, "", err
	}
	policy := governance.NewPolicy(governance.Config{
		WorkspaceRoot: cfg.App.WorkspaceRoot,
		DataRoot:      cfg.App.DataDir,
	})
	return index, policy, cfg.App.WorkspaceRoot, nil
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	index, policy, root, err := openIndex()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if root, err = filepath.Abs(args[0]); err != nil {
			return err
		}
	}
	if err := policy.CheckPath(root); err != nil {
		return err
	}
	stats, err := index.Rebuild(cmd.Context(), root, indexInclude, indexExclude)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), outputFormat, stats)
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	index, _, _, err := openIndex()
	if err != nil {
		return err
	}
	hits, err := index.Query(cmd.Context(), args[0], indexTopK)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), outputFormat, map[string]any{"hits": hits})
}
