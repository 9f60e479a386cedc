// Package config loads agentic's settings from a YAML file and AGENTIC_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Policy       PolicyConfig       `koanf:"policy"`
	LLM          LLMConfig          `koanf:"llm"`
	Notify       NotifyConfig       `koanf:"notify"`
	Log          LogConfig          `koanf:"log"`
}

type AppConfig struct {
	WorkspaceRoot string `koanf:"workspace_root"`
	DataDir       string `koanf:"data_dir"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type OrchestratorConfig struct {
	MaxIters       int           `koanf:"max_iters"`
	TimeoutSec     int           `koanf:"timeout_sec"`
	EvidenceLines  int           `koanf:"evidence_lines"`
	PlannerTimeout time.Duration `koanf:"planner_timeout"`
	ToolTimeoutSec int           `koanf:"tool_timeout_sec"`
}

// PolicyConfig overrides the sandbox lists. Empty lists keep the built-in defaults.
type PolicyConfig struct {
	BlockedKeywords []string `koanf:"blocked_keywords"`
	AllowedPrefixes []string `koanf:"allowed_prefixes"`
	DeniedTools     []string `koanf:"denied_tools"`
}

type LLMConfig struct {
	Provider   string `koanf:"provider"`
	APIKey     string `koanf:"api_key"`
	Model      string `koanf:"model"`
	BaseURL    string `koanf:"base_url"`
	PromptsDir string `koanf:"prompts_dir"`
}

type NotifyConfig struct {
	TelegramToken    string `koanf:"telegram_token"`
	TelegramChatID   string `koanf:"telegram_chat_id"`
	DiscordToken     string `koanf:"discord_token"`
	DiscordChannelID string `koanf:"discord_channel_id"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// GatewayConfig is the resolved configuration of one chat notifier.
type GatewayConfig struct {
	Token  string
	ChatID string
}

func applyDefaults(cfg *Config) {
	if cfg.App.WorkspaceRoot == "" {
		cfg.App.WorkspaceRoot = "/workspace"
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = "/agent_data"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Orchestrator.MaxIters == 0 {
		cfg.Orchestrator.MaxIters = 8
	}
	if cfg.Orchestrator.TimeoutSec == 0 {
		cfg.Orchestrator.TimeoutSec = 1800
	}
	if cfg.Orchestrator.EvidenceLines == 0 {
		cfg.Orchestrator.EvidenceLines = 40
	}
	if cfg.Orchestrator.PlannerTimeout == 0 {
		cfg.Orchestrator.PlannerTimeout = 2 * time.Minute
	}
	if cfg.Orchestrator.ToolTimeoutSec == 0 {
		cfg.Orchestrator.ToolTimeoutSec = 300
	}

	if cfg.LLM.Provider != "" && cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "auto"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.App.WorkspaceRoot == "" {
		return errors.New("app.workspace_root is required")
	}
	if c.App.DataDir == "" {
		return errors.New("app.data_dir is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	o := c.Orchestrator
	if o.MaxIters <= 0 {
		return fmt.Errorf("orchestrator.max_iters must be positive, got %d", o.MaxIters)
	}
	if o.TimeoutSec <= 0 {
		return fmt.Errorf("orchestrator.timeout_sec must be positive, got %d", o.TimeoutSec)
	}
	if o.EvidenceLines <= 0 {
		return fmt.Errorf("orchestrator.evidence_lines must be positive, got %d", o.EvidenceLines)
	}
	if o.PlannerTimeout <= 0 {
		return errors.New("orchestrator.planner_timeout must be positive")
	}
	if o.ToolTimeoutSec <= 0 {
		return fmt.Errorf("orchestrator.tool_timeout_sec must be positive, got %d", o.ToolTimeoutSec)
	}

	switch c.LLM.Provider {
	case "", "none":
	case "openai", "openrouter":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %s", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}

	switch c.Log.Format {
	case "json", "console", "auto":
	default:
		return fmt.Errorf("invalid log.format %q (json, console or auto)", c.Log.Format)
	}
	return nil
}

// LLMEnabled reports whether a planner model is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLM.Provider != "" && c.LLM.Provider != "none"
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	if c.Notify.TelegramToken == "" || c.Notify.TelegramChatID == "" {
		return GatewayConfig{}, false
	}
	return GatewayConfig{Token: c.Notify.TelegramToken, ChatID: c.Notify.TelegramChatID}, true
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	if c.Notify.DiscordToken == "" || c.Notify.DiscordChannelID == "" {
		return GatewayConfig{}, false
	}
	return GatewayConfig{Token: c.Notify.DiscordToken, ChatID: c.Notify.DiscordChannelID}, true
}

func (c *Config) DatabasePath() string { return filepath.Join(c.App.DataDir, "agent.db") }

func (c *Config) EventLogPath() string { return filepath.Join(c.App.DataDir, "events.log") }

func (c *Config) IndexPath() string { return filepath.Join(c.App.DataDir, "rag_index") }

func (c *Config) ArtifactsDir() string { return filepath.Join(c.App.DataDir, "artifacts") }

// Addr is the HTTP listen address.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port) }
