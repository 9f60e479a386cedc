// Package main implements agentic: an autonomous fix-until-verified loop
// with an HTTP API and a CLI client.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the YAML configuration file.
	configPath string
	// serverURL is the base URL used by the client commands.
	serverURL string
	// outputFormat selects json or yaml for client output.
	outputFormat string

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentic",
	Short: "Run a verification command and let a planner fix the code until it passes",
	Long: `agentic drives a task in a loop: run the Definition-of-Done command, and
while it fails, ask a planner for tool steps (read, patch, run) and execute
them inside the workspace sandbox.

Use "agentic serve" for the HTTP API, "agentic run" for a single task in the
foreground, and "agentic task ..." to talk to a running server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./agentic.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "agentic server URL for client commands")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "client output format: json or yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(indexCmd)
}
