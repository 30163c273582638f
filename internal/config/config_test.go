package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Engine.MaxCyclesPerIntention)
	assert.Equal(t, 10, cfg.Engine.MaxDepth)
	assert.Equal(t, ".riva/sessions.db", cfg.Store.DatabasePath)
	assert.Equal(t, 60*time.Second, cfg.CommandTimeout())
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riva.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "qwen2.5-coder:7b"
	cfg.Engine.MaxDepth = 4
	cfg.Sandbox.CommandTimeout = "90s"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", loaded.LLM.Provider)
	assert.Equal(t, "qwen2.5-coder:7b", loaded.LLM.Model)
	assert.Equal(t, 4, loaded.Engine.MaxDepth)
	assert.Equal(t, 90*time.Second, loaded.CommandTimeout())
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riva.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: anthropic
  api_key: test-key
engine:
  max_cycles_per_intention: 3
logging:
  debug_mode: true
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Engine.MaxCyclesPerIntention)
	assert.True(t, cfg.Logging.DebugMode)
	// Untouched sections keep defaults
	assert.Equal(t, 10, cfg.Engine.MaxDepth)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("RIVA_DB", "/tmp/custom.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "/tmp/custom.db", cfg.Store.DatabasePath)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = ""
	assert.ErrorContains(t, cfg.Validate(), "API key")

	cfg.LLM.Provider = "carrier-pigeon"
	assert.ErrorContains(t, cfg.Validate(), "unknown LLM provider")

	cfg = DefaultConfig()
	cfg.Engine.MaxCyclesPerIntention = 0
	assert.ErrorContains(t, cfg.Validate(), "max_cycles_per_intention")
}
