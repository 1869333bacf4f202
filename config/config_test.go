package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	path := writeConfig(t, "provider: gemini\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.ModelName)
	assert.Equal(t, "gem-key", cfg.APIKey)
	assert.Equal(t, 2, cfg.MemoryWindow)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, 20*time.Second, cfg.Retry.Delay)
	assert.Equal(t, 2*time.Second, cfg.RatePause)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 40, cfg.Generation.TopK)
	assert.Equal(t, 8192, cfg.Generation.MaxOutputTokens)
	assert.InDelta(t, 0.95, cfg.Generation.TopP, 1e-6)
	assert.Equal(t, "generated_app.py", cfg.OutputFile)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Server.MaxRuns)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
provider: anthropic
model_name: claude-3-haiku
api_key: file-key
memory_window: 0
retry:
  max_attempts: 4
  delay: 1s
generation:
  temperature: 0.5
server:
  workers: 3
`)
	t.Setenv("ARCHITECT_MODEL_NAME", "env-model")
	t.Setenv("ARCHITECT_SERVER_ADDR", ":9090")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "env-model", cfg.ModelName)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, 1, cfg.MemoryWindow)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Delay)
	assert.InDelta(t, 0.5, cfg.Generation.Temperature, 1e-6)
	assert.Equal(t, 3, cfg.Server.Workers)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Provider: "gemini", APIKey: "k", Retry: RetryConfig{MaxAttempts: 2}}
	assert.NoError(t, cfg.Validate())

	cfg.APIKey = ""
	assert.ErrorContains(t, cfg.Validate(), "GEMINI_API_KEY")

	cfg = &Config{Provider: "mistral", APIKey: "k", Retry: RetryConfig{MaxAttempts: 2}}
	assert.ErrorContains(t, cfg.Validate(), "unknown provider")

	cfg = &Config{Provider: "openai", APIKey: "k"}
	assert.Error(t, cfg.Validate())
}

func TestLlmConfigAndRequest(t *testing.T) {
	cfg := &Config{
		Provider:     "gemini",
		APIKey:       "k",
		ModelName:    "m",
		MemoryWindow: 3,
		Retry:        RetryConfig{MaxAttempts: 2, Delay: time.Second},
		RatePause:    time.Second,
		Generation:   GenerationConfig{Temperature: 0.2, TopK: 40},
	}

	lc := cfg.LlmConfig("0b0e6a64-3a8f-4c61-9f3e-8d2f1c7a9b10")
	assert.Equal(t, "0b0e6a643a8f4c619f3e8d2f", lc.BatchID)
	assert.Equal(t, 2, lc.Retry.MaxAttempts)
	assert.Equal(t, time.Second, lc.Pause)
	assert.Equal(t, 40, lc.Params.TopK)

	assert.Equal(t, 3, cfg.Request("p", 0).MemoryWindow)
	assert.Equal(t, 1, cfg.Request("p", 1).MemoryWindow)
	assert.Equal(t, "p", cfg.Request("p", 1).MasterPrompt)
}
