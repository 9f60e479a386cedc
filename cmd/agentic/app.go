package main

import (
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/rahul/agentic/internal/agent"
	"github.com/rahul/agentic/internal/events"
	"github.com/rahul/agentic/internal/gateway"
	"github.com/rahul/agentic/internal/governance"
	"github.com/rahul/agentic/internal/observability"
	"github.com/rahul/agentic/internal/rag"
	"github.com/rahul/agentic/internal/store"
	"github.com/rahul/agentic/internal/tools"
	"github.com/rahul/agentic/pkg/config"
)

// app holds the wired components shared by serve and run.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	store        *store.Store
	bus          *events.Bus
	events       *events.Fanout
	status       *observability.Status
	policy       *governance.Policy
	index        *rag.Index
	registry     *tools.Registry
	orchestrator *agent.Orchestrator
	dispatcher   *agent.Dispatcher
	notifier     *gateway.Notifier
}

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.ArtifactsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	index, err := rag.Open(cfg.IndexPath(), logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening index: %w", err)
	}

	policy := governance.NewPolicy(governance.Config{
		WorkspaceRoot:   cfg.App.WorkspaceRoot,
		DataRoot:        cfg.App.DataDir,
		BlockedKeywords: cfg.Policy.BlockedKeywords,
		AllowedPrefixes: cfg.Policy.AllowedPrefixes,
		DeniedTools:     cfg.Policy.DeniedTools,
	})
	runner := tools.NewRunner(policy, logger)
	registry := tools.NewRegistry(tools.Deps{
		Guard:          policy,
		Runner:         runner,
		Index:          index,
		WorkspaceRoot:  cfg.App.WorkspaceRoot,
		ToolTimeoutSec: cfg.Orchestrator.ToolTimeoutSec,
		Logger:         logger,
	})

	planner, err := newPlanner(cfg, registry, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		bus:      events.NewBus(),
		status:   observability.NewStatus(),
		policy:   policy,
		index:    index,
		registry: registry,
	}
	a.events = events.NewFanout(logger.Named("events"),
		a.bus,
		a.status,
		observability.NewEventLog(cfg.EventLogPath(), logger),
		observability.MetricsSink,
	)
	if targets := notifyTargets(cfg, logger); len(targets) > 0 {
		a.notifier = gateway.NewNotifier(st, logger, targets...)
		a.events.Add(a.notifier)
	}

	a.orchestrator = agent.NewOrchestrator(agent.Options{
		Store:          st,
		Runner:         runner,
		Planner:        planner,
		Executor:       agent.NewExecutor(registry, policy, logger),
		Artifacts:      agent.NewArtifactWriter(cfg.ArtifactsDir(), st, logger),
		Sink:           a.events,
		Logger:         logger,
		EvidenceLines:  cfg.Orchestrator.EvidenceLines,
		PlannerTimeout: cfg.Orchestrator.PlannerTimeout,
	})
	a.dispatcher = agent.NewDispatcher(st, a.orchestrator, logger)
	return a, nil
}

// newPlanner returns the LLM planner when a provider is configured, and the
// null planner otherwise.
func newPlanner(cfg *config.Config, registry *tools.Registry, logger *zap.Logger) (agent.Planner, error) {
	if !cfg.LLMEnabled() {
		logger.Warn("no LLM provider configured; plans will be empty")
		return agent.NullPlanner{}, nil
	}

	var (
		llm llms.Model
		err error
	)
	switch cfg.LLM.Provider {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(cfg.LLM.APIKey),
			openai.WithModel(cfg.LLM.Model),
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("provider %s not supported", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.LLM.Provider, err)
	}

	logger.Info("planner ready", zap.String("provider", cfg.LLM.Provider), zap.String("model", cfg.LLM.Model))
	return agent.NewLLMPlanner(llm, registry, agent.NewPromptManager(cfg.LLM.PromptsDir), logger), nil
}

// notifyTargets connects the configured chat gateways. A gateway that fails
// to connect is logged and skipped.
func notifyTargets(cfg *config.Config, logger *zap.Logger) []gateway.Target {
	var targets []gateway.Target
	if tg, ok := cfg.GetTelegramConfig(); ok {
		m, err := gateway.NewTelegramGateway(tg.Token, logger)
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			targets = append(targets, gateway.Target{Messenger: m, ChatID: tg.ChatID})
		}
	}
	if dc, ok := cfg.GetDiscordConfig(); ok {
		m, err := gateway.NewDiscordGateway(dc.Token)
		if err != nil {
			logger.Warn("discord notifications disabled", zap.Error(err))
		} else {
			targets = append(targets, gateway.Target{Messenger: m, ChatID: dc.ChatID})
		}
	}
	return targets
}

// close waits for in-flight tasks and releases resources.
func (a *app) close() {
	a.dispatcher.Wait()
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("closing notifier", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
