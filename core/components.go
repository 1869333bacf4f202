package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/santiagomed/architect/llm"
	"github.com/santiagomed/architect/logger"
)

// Planner turns a master prompt into a Plan.
type Planner struct {
	client llm.LlmClient
	logger logger.Logger
}

func NewPlanner(client llm.LlmClient, l logger.Logger) *Planner {
	return &Planner{client: client, logger: l}
}

// Plan fails with the client's error when the service cannot be reached and
// with a *ParseError when the reply is not a plan.
func (p *Planner) Plan(ctx context.Context, masterPrompt string) (Plan, error) {
	raw, err := llm.RequestPlan(ctx, p.client, masterPrompt)
	if err != nil {
		return nil, err
	}
	plan, err := ParsePlan(raw)
	if err != nil {
		p.logger.Error(fmt.Sprintf("Model response is not a valid plan: %v", err))
		return nil, err
	}
	p.logger.Info(fmt.Sprintf("Plan created with %d sections: %s", len(plan), strings.Join(plan.Names(), ", ")))
	return plan, nil
}

// Summarizer compresses a finished block into one sentence. It never fails.
type Summarizer struct {
	client llm.LlmClient
	logger logger.Logger
}

func NewSummarizer(client llm.LlmClient, l logger.Logger) *Summarizer {
	return &Summarizer{client: client, logger: l}
}

const fallbackSummaryLen = 160

func (s *Summarizer) Summarize(ctx context.Context, block CodeBlock) string {
	res, err := llm.SummarizeCode(ctx, s.client, block.String())
	if err == nil {
		if sentence := oneLine(StripCodeFences(res)); sentence != "" {
			return sentence
		}
	}
	if err != nil {
		s.logger.Warn(fmt.Sprintf("Summary of %s failed, using local summary: %v", block.SectionName, err))
	}
	return FallbackSummary(block)
}

// FallbackSummary is the deterministic summary used when the service cannot
// produce one: the section header followed by the start of the code.
func FallbackSummary(block CodeBlock) string {
	prefix := []rune(oneLine(block.Code))
	if len(prefix) > fallbackSummaryLen {
		return block.Header() + ": " + strings.TrimSpace(string(prefix[:fallbackSummaryLen])) + "..."
	}
	return block.Header() + ": " + string(prefix)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SectionError aborts a run when one section could not be generated.
type SectionError struct {
	Index   int
	Section string
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("failed to generate section %d (%s): %v", e.Index+1, e.Section, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// SectionProgress is called before each section is generated.
type SectionProgress func(index, total int, name string)

// SectionGenerator runs the memory loop over a plan.
type SectionGenerator struct {
	client     llm.LlmClient
	summarizer *Summarizer
	logger     logger.Logger
	progress   SectionProgress
}

func NewSectionGenerator(client llm.LlmClient, summarizer *Summarizer, l logger.Logger, progress SectionProgress) *SectionGenerator {
	return &SectionGenerator{client: client, summarizer: summarizer, logger: l, progress: progress}
}

// GenerateAll generates every section in plan order. Any failure discards the
// blocks produced so far.
func (g *SectionGenerator) GenerateAll(ctx context.Context, plan Plan, window int) ([]CodeBlock, *Memory, error) {
	if window < 1 {
		g.logger.Warn(fmt.Sprintf("Memory window %d is below 1, using 1", window))
		window = 1
	}

	memory := NewMemory(window, func(b CodeBlock) string {
		g.logger.Debug(fmt.Sprintf("Moving section %s to long-term memory", b.SectionName))
		return g.summarizer.Summarize(ctx, b)
	})
	blocks := make([]CodeBlock, 0, len(plan))

	for i, step := range plan {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if g.progress != nil {
			g.progress(i, len(plan), step.SectionName)
		}
		g.logger.Info(fmt.Sprintf("Generating section %d/%d: %s", i+1, len(plan), step.SectionName))

		code, err := llm.GenerateSection(ctx, g.client, memory.LongTerm(), memory.ShortTerm(), step.SectionName, step.Description)
		if err != nil {
			return nil, nil, &SectionError{Index: i, Section: step.SectionName, Err: err}
		}

		block := CodeBlock{SectionName: step.SectionName, Code: StripCodeFences(code)}
		blocks = append(blocks, block)
		memory.Add(block)
	}
	return blocks, memory, nil
}

// Refiner runs the final review pass over an assembled script.
type Refiner struct {
	client llm.LlmClient
	logger logger.Logger
}

func NewRefiner(client llm.LlmClient, l logger.Logger) *Refiner {
	return &Refiner{client: client, logger: l}
}

// Refine returns the reviewed script and true, or finalScript and false when
// the review could not be obtained.
func (r *Refiner) Refine(ctx context.Context, finalScript, masterPrompt string) (string, bool) {
	res, err := llm.RefineScript(ctx, r.client, finalScript, masterPrompt)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("Refinement failed, keeping unrefined script: %v", err))
		return finalScript, false
	}
	refined := StripCodeFences(res)
	if refined == "" {
		r.logger.Warn("Refinement returned no code, keeping unrefined script")
		return finalScript, false
	}
	return refined + "\n", true
}
