package llm

import "context"

// LlmClient is the single entry point the pipeline uses to talk to the
// generation service.
type LlmClient interface {
	GetCompletion(ctx context.Context, systemInstruction, userContent string) (string, error)
}

// Backend performs exactly one request against a generation service.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string, params GenerationParams) (Completion, error)
}

// GenerationParams are the sampling knobs sent with every request.
// Zero values leave the provider default in place.
type GenerationParams struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

// Completion is the text extracted from a provider response envelope.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
