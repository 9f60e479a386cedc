package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "AGENTIC_"

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "agentic.yaml"

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"policy.blocked_keywords": true,
	"policy.allowed_prefixes": true,
	"policy.denied_tools":     true,
}

// LoadConfig loads configuration from a YAML file, then overrides it with
// environment variables.
//
// Precedence (highest to lowest):
//  1. AGENTIC_* environment variables
//  2. the YAML file
//  3. built-in defaults
//
// An explicit path must exist. With an empty path, agentic.yaml in the
// working directory is used when present.
//
// Environment keys drop the prefix and split on the first underscore:
//
//	AGENTIC_APP_WORKSPACE_ROOT -> app.workspace_root
//	AGENTIC_LLM_API_KEY        -> llm.api_key
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps AGENTIC_SECTION_FIELD_NAME to section.field_name.
func envKey(name, value string) (string, any) {
	lower := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower, value
	}
	key := section + "." + field
	if listKeys[key] {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return key, out
	}
	return key, value
}
