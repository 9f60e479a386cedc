package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rahul/agentic/internal/api"
	"github.com/rahul/agentic/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and task workers",
	Long: `Start the HTTP API. Each submitted task runs in its own background worker.
On SIGINT/SIGTERM the server stops accepting requests and waits for running
tasks to finish before exiting.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := api.NewServer(api.Deps{
		Tasks:  a.dispatcher,
		Store:  a.store,
		Bus:    a.bus,
		Index:  a.index,
		Guard:  a.policy,
		Status: a.status,
	}, logger, &api.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		WorkspaceRoot:     cfg.App.WorkspaceRoot,
		DefaultMaxIters:   cfg.Orchestrator.MaxIters,
		DefaultTimeoutSec: cfg.Orchestrator.TimeoutSec,
	})
	if err != nil {
		return err
	}

	observability.PrintBanner(os.Stdout, "http://"+cfg.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("waiting for running tasks", zap.Int("active", len(a.status.Snapshot().Active)))
	return err
}
