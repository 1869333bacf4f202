package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/santiagomed/architect/config"
	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/llm"
	"github.com/santiagomed/architect/logger"
)

// planMarkdown lists the sections of a plan as a numbered markdown list.
func planMarkdown(plan core.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan (%d sections)\n\n", len(plan))
	for i, step := range plan {
		fmt.Fprintf(&b, "%d. **%s**\n\n   %s\n\n", i+1, step.SectionName, step.Description)
	}
	return b.String()
}

func renderMarkdown(input string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(input)
}

// runPlan asks for a plan only and returns it rendered for the terminal.
func runPlan(ctx context.Context, cfg *config.Config, prompt string, l logger.Logger) (string, error) {
	client, err := llm.NewClient(ctx, cfg.LlmConfig(uuid.NewString()), l)
	if err != nil {
		return "", err
	}
	plan, err := core.NewPlanner(client, l).Plan(ctx, prompt)
	if err != nil {
		return "", err
	}
	md := planMarkdown(plan)
	out, err := renderMarkdown(md, 80)
	if err != nil {
		l.Warn(fmt.Sprintf("Failed to render plan, printing raw markdown: %v", err))
		return md, nil
	}
	return out, nil
}
