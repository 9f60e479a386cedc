package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray agentic.yaml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/workspace", cfg.App.WorkspaceRoot)
	assert.Equal(t, "/agent_data", cfg.App.DataDir)
	assert.Equal(t, 8, cfg.Orchestrator.MaxIters)
	assert.Equal(t, 1800, cfg.Orchestrator.TimeoutSec)
	assert.Equal(t, 40, cfg.Orchestrator.EvidenceLines)
	assert.Equal(t, 2*time.Minute, cfg.Orchestrator.PlannerTimeout)
	assert.Equal(t, 300, cfg.Orchestrator.ToolTimeoutSec)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.False(t, cfg.LLMEnabled())

	assert.Equal(t, "/agent_data/agent.db", cfg.DatabasePath())
	assert.Equal(t, "/agent_data/events.log", cfg.EventLogPath())
	assert.Equal(t, "/agent_data/rag_index", cfg.IndexPath())
	assert.Equal(t, "/agent_data/artifacts", cfg.ArtifactsDir())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := chdir(t)
	path := writeConfig(t, dir, `
app:
  workspace_root: /repo
  data_dir: /data
server:
  port: 9000
orchestrator:
  max_iters: 3
  planner_timeout: 30s
policy:
  allowed_prefixes: [pytest, go]
llm:
  provider: openai
  api_key: from-file
  model: gpt-4o
`)
	t.Setenv("AGENTIC_LLM_API_KEY", "from-env")
	t.Setenv("AGENTIC_ORCHESTRATOR_MAX_ITERS", "5")
	t.Setenv("AGENTIC_POLICY_BLOCKED_KEYWORDS", "sudo, rm -rf /")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/repo", cfg.App.WorkspaceRoot)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Orchestrator.MaxIters)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.PlannerTimeout)
	assert.Equal(t, []string{"pytest", "go"}, cfg.Policy.AllowedPrefixes)
	assert.Equal(t, []string{"sudo", "rm -rf /"}, cfg.Policy.BlockedKeywords)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.True(t, cfg.LLMEnabled())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	chdir(t)
	_, err := LoadConfig("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"negative iterations", "orchestrator:\n  max_iters: -1\n", "max_iters"},
		{"bad port", "server:\n  port: 70000\n", "port"},
		{"openai without key", "llm:\n  provider: openai\n", "api_key"},
		{"unknown provider", "llm:\n  provider: carrier-pigeon\n", "unsupported"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdir(t)
			_, err := LoadConfig(writeConfig(t, dir, tt.body))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestGatewayConfig(t *testing.T) {
	cfg := &Config{Notify: NotifyConfig{TelegramToken: "t", TelegramChatID: "42", DiscordToken: "d"}}

	tg, ok := cfg.GetTelegramConfig()
	assert.True(t, ok)
	assert.Equal(t, "42", tg.ChatID)

	_, ok = cfg.GetDiscordConfig()
	assert.False(t, ok)
}

func TestEnvKey(t *testing.T) {
	key, val := envKey("AGENTIC_APP_WORKSPACE_ROOT", "/w")
	assert.Equal(t, "app.workspace_root", key)
	assert.Equal(t, "/w", val)

	key, val = envKey("AGENTIC_POLICY_DENIED_TOOLS", "write_file,,run_cmd")
	assert.Equal(t, "policy.denied_tools", key)
	assert.Equal(t, []string{"write_file", "run_cmd"}, val)
}
