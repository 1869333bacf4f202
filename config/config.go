package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/llm"
	"github.com/spf13/viper"
)

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
}

type GenerationConfig struct {
	Temperature     float32 `mapstructure:"temperature"`
	TopP            float32 `mapstructure:"top_p"`
	TopK            int     `mapstructure:"top_k"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	Workers int    `mapstructure:"workers"`
	MaxRuns int    `mapstructure:"max_runs"`
}

type Config struct {
	Provider       string           `mapstructure:"provider"`
	ModelName      string           `mapstructure:"model_name"`
	APIKey         string           `mapstructure:"api_key"`
	BaseURL        string           `mapstructure:"base_url"`
	TellmURL       string           `mapstructure:"tellm_url"`
	MemoryWindow   int              `mapstructure:"memory_window"`
	Retry          RetryConfig      `mapstructure:"retry"`
	RequestTimeout time.Duration    `mapstructure:"request_timeout"`
	RatePause      time.Duration    `mapstructure:"rate_pause"`
	Generation     GenerationConfig `mapstructure:"generation"`
	OutputFile     string           `mapstructure:"output_file"`
	Server         ServerConfig     `mapstructure:"server"`
}

var providerKeyEnv = map[string]string{
	llm.ProviderGemini:    "GEMINI_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", llm.ProviderGemini)
	v.SetDefault("model_name", "gemini-1.5-flash-latest")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("tellm_url", "")
	v.SetDefault("memory_window", core.DefaultMemoryWindow)
	retry := llm.DefaultRetryPolicy()
	v.SetDefault("retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("retry.delay", retry.Delay)
	v.SetDefault("request_timeout", 120*time.Second)
	v.SetDefault("rate_pause", 2*time.Second)
	v.SetDefault("generation.temperature", 0.2)
	v.SetDefault("generation.top_p", 0.95)
	v.SetDefault("generation.top_k", 40)
	v.SetDefault("generation.max_output_tokens", 8192)
	v.SetDefault("output_file", "generated_app.py")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.workers", 1)
	v.SetDefault("server.max_runs", 100)
}

// LoadConfig reads defaults, then the config file, then the environment.
// An empty configPath searches ./config.yaml and ~/.architect/config.yaml and
// tolerates neither existing.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ARCHITECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".architect"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.APIKey == "" {
		if env, ok := providerKeyEnv[cfg.Provider]; ok {
			cfg.APIKey = os.Getenv(env)
		}
	}
	if cfg.MemoryWindow < 1 {
		cfg.MemoryWindow = 1
	}
	return cfg, nil
}

// Validate reports settings a run cannot start with.
func (c *Config) Validate() error {
	if _, ok := providerKeyEnv[c.Provider]; !ok {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("no API key configured for provider %s (set api_key or %s)", c.Provider, providerKeyEnv[c.Provider])
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// LlmConfig builds the generation client settings for one run.
func (c *Config) LlmConfig(runID string) *llm.LlmConfig {
	return &llm.LlmConfig{
		Provider:  c.Provider,
		APIKey:    c.APIKey,
		ModelName: c.ModelName,
		BaseURL:   c.BaseURL,
		BatchID:   llm.BatchIDFromRunID(runID),
		TellmURL:  c.TellmURL,
		Params: llm.GenerationParams{
			Temperature:     c.Generation.Temperature,
			TopP:            c.Generation.TopP,
			TopK:            c.Generation.TopK,
			MaxOutputTokens: c.Generation.MaxOutputTokens,
		},
		Retry: llm.RetryPolicy{
			MaxAttempts: c.Retry.MaxAttempts,
			Delay:       c.Retry.Delay,
		},
		RequestTimeout: c.RequestTimeout,
		Pause:          c.RatePause,
	}
}

// Request builds a pipeline request, falling back to the configured window
// when memoryWindow is not positive.
func (c *Config) Request(masterPrompt string, memoryWindow int) *core.Request {
	if memoryWindow < 1 {
		memoryWindow = c.MemoryWindow
	}
	return core.NewRequest(masterPrompt, memoryWindow)
}
