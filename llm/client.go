package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/santiagomed/architect/logger"
	tellm "github.com/santiagomed/tellm/sdk"
	"golang.org/x/time/rate"
)

type LlmConfig struct {
	Provider       string
	APIKey         string
	ModelName      string
	BaseURL        string
	BatchID        string
	TellmURL       string
	Params         GenerationParams
	Retry          RetryPolicy
	RequestTimeout time.Duration
	// Pause is the minimum spacing between two calls to the service.
	Pause time.Duration
}

// Client wraps a Backend with the retry, timeout and pacing policy.
type Client struct {
	backend     Backend
	config      *LlmConfig
	limiter     *rate.Limiter
	tellmClient *tellm.Client
	logger      logger.Logger
}

// NewClient builds the backend named by cfg.Provider and wraps it.
func NewClient(ctx context.Context, cfg *LlmConfig, l logger.Logger) (*Client, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Provider {
	case ProviderGemini, "":
		backend, err = NewGeminiBackend(ctx, cfg)
	case ProviderOpenAI:
		backend, err = NewOpenAIBackend(cfg)
	case ProviderAnthropic:
		backend, err = NewAnthropicBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewClientWithBackend(backend, cfg, l), nil
}

// NewClientWithBackend wraps an already constructed backend.
func NewClientWithBackend(backend Backend, cfg *LlmConfig, l logger.Logger) *Client {
	if l == nil {
		l = logger.NewNullLogger()
	}
	limit := rate.Inf
	if cfg.Pause > 0 {
		limit = rate.Every(cfg.Pause)
	}
	c := &Client{
		backend: backend,
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  l.WithField("backend", backend.Name()),
	}
	if cfg.TellmURL != "" {
		c.tellmClient = tellm.NewClient(cfg.TellmURL)
	}
	return c
}

// GetCompletion sends systemInstruction and userContent as one combined prompt.
func (c *Client) GetCompletion(ctx context.Context, systemInstruction, userContent string) (string, error) {
	prompt := systemInstruction + "\n\n" + userContent

	var out Completion
	attempts, err := c.config.Retry.Do(ctx, func(attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		res, err := c.attempt(ctx, prompt)
		if err != nil {
			c.logger.Warn(fmt.Sprintf("Request failed (attempt %d/%d): %v", attempt, c.config.Retry.MaxAttempts, err))
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		c.logger.Error(fmt.Sprintf("Request failed after %d attempt(s)", attempts))
		return "", &Failure{Kind: classify(err), Attempts: attempts, Err: err}
	}

	c.logUsage(prompt, out)
	return out.Text, nil
}

func (c *Client) attempt(ctx context.Context, prompt string) (Completion, error) {
	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}
	res, err := c.backend.Complete(ctx, prompt, c.config.Params)
	if err != nil {
		return Completion{}, err
	}
	if res.Text == "" {
		return Completion{}, ErrEmptyResponse
	}
	return res, nil
}

func (c *Client) logUsage(prompt string, res Completion) {
	if c.tellmClient == nil {
		return
	}
	err := c.tellmClient.Log(c.config.BatchID, prompt, res.Text, c.config.ModelName, res.PromptTokens, res.CompletionTokens)
	if err != nil {
		c.logger.WithField("warning", err).Warn("failed to log to tellm")
	}
}

// IsFailure reports whether err came out of an exhausted Client call.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}
