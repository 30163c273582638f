// Package config loads riva configuration from YAML with environment
// overrides. Missing files fall back to defaults so the CLI works out of
// the box.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all riva configuration.
type Config struct {
	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Engine limits
	Engine EngineConfig `yaml:"engine"`

	// Sandbox behavior
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Web-backed tools
	Web WebConfig `yaml:"web"`

	// Session persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the language-model client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, ollama, none
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// EngineConfig bounds the recursive work algorithm.
type EngineConfig struct {
	MaxCyclesPerIntention int `yaml:"max_cycles_per_intention"`
	MaxDepth              int `yaml:"max_depth"`
}

// SandboxConfig configures command execution in the workspace.
type SandboxConfig struct {
	CommandTimeout string `yaml:"command_timeout"`
}

// WebConfig configures the optional web-backed tools. Empty URLs disable
// the corresponding tool.
type WebConfig struct {
	DocsURL   string `yaml:"docs_url"`
	SearchURL string `yaml:"search_url"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures category file logging and the per-run JSONL log.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "none",
			Model:    "",
			BaseURL:  "",
		},
		Engine: EngineConfig{
			MaxCyclesPerIntention: 5,
			MaxDepth:              10,
		},
		Sandbox: SandboxConfig{
			CommandTimeout: "60s",
		},
		Store: StoreConfig{
			DatabasePath: ".riva/sessions.db",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads configuration from a YAML file, returning defaults when the
// file does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" || c.LLM.Provider == "none" {
			c.LLM.Provider = "anthropic"
		}
	}
	if model := os.Getenv("RIVA_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("RIVA_LLM_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if path := os.Getenv("RIVA_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// CommandTimeout parses the sandbox command timeout, defaulting to 60s.
func (c *Config) CommandTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Sandbox.CommandTimeout); err == nil && d > 0 {
		return d
	}
	return 60 * time.Second
}

// Validate checks settings that would fail later in confusing ways.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "", "none", "ollama":
	case "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("anthropic provider requires an API key (set ANTHROPIC_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown LLM provider: %s", c.LLM.Provider)
	}
	if c.Engine.MaxCyclesPerIntention < 1 {
		return fmt.Errorf("max_cycles_per_intention must be at least 1")
	}
	if c.Engine.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative")
	}
	return nil
}
