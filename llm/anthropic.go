package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

type AnthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"content"`
	ID         string `json:"id"`
	Model      string `json:"model"`
	Role       string `json:"role"`
	StopReason string `json:"stop_reason"`
	Type       string `json:"type"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type AnthropicErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type AnthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
	TopP        *float32  `json:"top_p,omitempty"`
	TopK        *int      `json:"top_k,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnthropicBackend struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

func NewAnthropicBackend(cfg *LlmConfig) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	url := anthropicURL
	if cfg.BaseURL != "" {
		url = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}
	return &AnthropicBackend{
		apiKey:     cfg.APIKey,
		model:      cfg.ModelName,
		url:        url,
		httpClient: &http.Client{},
	}, nil
}

func (a *AnthropicBackend) Name() string { return ProviderAnthropic }

func (a *AnthropicBackend) Complete(ctx context.Context, prompt string, params GenerationParams) (Completion, error) {
	req := AnthropicRequest{
		Model:     a.model,
		MaxTokens: 4096,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	}
	if params.MaxOutputTokens > 0 {
		req.MaxTokens = params.MaxOutputTokens
	}
	if params.Temperature > 0 {
		req.Temperature = &params.Temperature
	}
	if params.TopP > 0 {
		req.TopP = &params.TopP
	}
	if params.TopK > 0 {
		req.TopK = &params.TopK
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return Completion{}, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return Completion{}, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp AnthropicErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return Completion{}, fmt.Errorf("anthropic API error: status %d", resp.StatusCode)
		}
		return Completion{}, fmt.Errorf("anthropic API error: %s - %s", errResp.Error.Type, errResp.Error.Message)
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return Completion{}, fmt.Errorf("error unmarshaling response: %w", err)
	}

	var text strings.Builder
	for _, c := range anthropicResp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return Completion{}, ErrEmptyResponse
	}

	return Completion{
		Text:             text.String(),
		PromptTokens:     anthropicResp.Usage.InputTokens,
		CompletionTokens: anthropicResp.Usage.OutputTokens,
	}, nil
}
