package core

import (
	"context"
	"fmt"

	"github.com/santiagomed/architect/llm"
	"github.com/santiagomed/architect/logger"
)

type Step interface {
	Execute(ctx context.Context, state *State, res Result) (Result, error)
}

// State holds what a step needs besides the previous Result. It is not
// modified by steps.
type State struct {
	Request   *Request
	Publisher StepPublisher
	Logger    logger.Logger
}

type StepManager interface {
	GetSteps() []StepType
	GetStep(stepType StepType) Step
}

type DefaultStepManager struct {
	steps   []StepType
	stepMap map[StepType]Step
}

func NewDefaultStepManager(client llm.LlmClient) *DefaultStepManager {
	return &DefaultStepManager{
		steps: []StepType{CreatePlan, GenerateSections, RefineScript},
		stepMap: map[StepType]Step{
			CreatePlan:       &CreatePlanStep{client: client},
			GenerateSections: &GenerateSectionsStep{client: client},
			RefineScript:     &RefineScriptStep{client: client},
		},
	}
}

func (m *DefaultStepManager) GetSteps() []StepType { return m.steps }

func (m *DefaultStepManager) GetStep(stepType StepType) Step { return m.stepMap[stepType] }

type CreatePlanStep struct {
	client llm.LlmClient
}

func (s *CreatePlanStep) Execute(ctx context.Context, state *State, res Result) (Result, error) {
	state.Logger.Debug("Creating plan.")
	plan, err := NewPlanner(s.client, state.Logger).Plan(ctx, state.Request.MasterPrompt)
	if err != nil {
		state.Logger.Error(fmt.Sprintf("Failed to create plan: %v", err))
		return res, err
	}
	res.Plan = plan
	state.Logger.Debug("Plan created successfully")
	return res, nil
}

type GenerateSectionsStep struct {
	client llm.LlmClient
}

func (s *GenerateSectionsStep) Execute(ctx context.Context, state *State, res Result) (Result, error) {
	state.Logger.Debug("Generating sections.")
	summarizer := NewSummarizer(s.client, state.Logger)
	gen := NewSectionGenerator(s.client, summarizer, state.Logger, state.Publisher.PublishSection)

	blocks, memory, err := gen.GenerateAll(ctx, res.Plan, state.Request.MemoryWindow)
	if err != nil {
		state.Logger.Error(fmt.Sprintf("Failed to generate sections: %v", err))
		return res, err
	}
	res.Blocks = blocks
	res.Summaries = memory.Summaries()
	res.FinalScript = AssembleScript(blocks)
	state.Logger.Debug(fmt.Sprintf("All %d sections generated successfully", len(blocks)))
	return res, nil
}

type RefineScriptStep struct {
	client llm.LlmClient
}

func (s *RefineScriptStep) Execute(ctx context.Context, state *State, res Result) (Result, error) {
	state.Logger.Debug("Refining script.")
	res.RefinedScript, res.Refined = NewRefiner(s.client, state.Logger).Refine(ctx, res.FinalScript, state.Request.MasterPrompt)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if res.Refined {
		state.Logger.Debug("Script refined successfully")
	}
	return res, nil
}
