package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type GeminiBackend struct {
	client *genai.Client
	model  string
}

func NewGeminiBackend(ctx context.Context, cfg *LlmConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("error creating gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: cfg.ModelName}, nil
}

func (g *GeminiBackend) Name() string { return ProviderGemini }

func (g *GeminiBackend) Complete(ctx context.Context, prompt string, params GenerationParams) (Completion, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), geminiConfig(params))
	if err != nil {
		return Completion{}, fmt.Errorf("gemini API error: %w", err)
	}
	return geminiCompletion(resp)
}

func geminiConfig(params GenerationParams) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if params.Temperature > 0 {
		cfg.Temperature = genai.Ptr(params.Temperature)
	}
	if params.TopP > 0 {
		cfg.TopP = genai.Ptr(params.TopP)
	}
	if params.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(params.TopK))
	}
	if params.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxOutputTokens)
	}
	return cfg
}

// geminiCompletion walks candidates -> content -> parts and joins the text of
// the first candidate that has any.
func geminiCompletion(resp *genai.GenerateContentResponse) (Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Completion{}, ErrEmptyResponse
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	if text.Len() == 0 {
		return Completion{}, ErrEmptyResponse
	}

	res := Completion{Text: text.String()}
	if u := resp.UsageMetadata; u != nil {
		res.PromptTokens = int(u.PromptTokenCount)
		res.CompletionTokens = int(u.CandidatesTokenCount)
	}
	return res, nil
}
