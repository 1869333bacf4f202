package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type OpenAIBackend struct {
	openAIClient *openai.Client
	model        string
}

func NewOpenAIBackend(cfg *LlmConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIBackend{
		openAIClient: openai.NewClientWithConfig(oc),
		model:        cfg.ModelName,
	}, nil
}

func (o *OpenAIBackend) Name() string { return ProviderOpenAI }

// Complete sends the combined prompt as a single user message. Top-k is not
// part of the chat completions API and is dropped.
func (o *OpenAIBackend) Complete(ctx context.Context, prompt string, params GenerationParams) (Completion, error) {
	resp, err := o.openAIClient.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: params.Temperature,
			TopP:        params.TopP,
			MaxTokens:   params.MaxOutputTokens,
		},
	)

	e := &openai.APIError{}
	if errors.As(err, &e) {
		switch e.HTTPStatusCode {
		case 401:
			return Completion{}, fmt.Errorf("unauthorized: invalid OpenAI API key")
		case 429:
			return Completion{}, fmt.Errorf("rate limited by OpenAI API")
		case 500:
			return Completion{}, fmt.Errorf("OpenAI server error")
		default:
			return Completion{}, fmt.Errorf("OpenAI API error: %v", e)
		}
	}
	if err != nil {
		return Completion{}, fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Completion{}, ErrEmptyResponse
	}
	return Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
