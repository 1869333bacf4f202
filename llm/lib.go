package llm

import (
	"context"
	"fmt"
)

// RequestPlan asks the service to decompose masterPrompt into sections and
// returns the raw reply.
func RequestPlan(ctx context.Context, client LlmClient, masterPrompt string) (string, error) {
	res, err := client.GetCompletion(ctx, getPlanningInstruction(), getPlanningContent(masterPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to create plan: %w", err)
	}
	return res, nil
}

// GenerateSection generates the code of one section given the rendered memory.
func GenerateSection(ctx context.Context, client LlmClient, longTerm, shortTerm, sectionName, description string) (string, error) {
	content := getSectionContent(longTerm, shortTerm, sectionName, description)
	res, err := client.GetCompletion(ctx, getSectionInstruction(), content)
	if err != nil {
		return "", fmt.Errorf("failed to generate section %s: %w", sectionName, err)
	}
	return res, nil
}

// SummarizeCode compresses a code block into a single sentence.
func SummarizeCode(ctx context.Context, client LlmClient, code string) (string, error) {
	return client.GetCompletion(ctx, getSummaryInstruction(), getSummaryContent(code))
}

// RefineScript asks for a whole-script review pass.
func RefineScript(ctx context.Context, client LlmClient, script, masterPrompt string) (string, error) {
	res, err := client.GetCompletion(ctx, getRefineInstruction(), getRefineContent(script, masterPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to refine script: %w", err)
	}
	return res, nil
}
