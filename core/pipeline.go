package core

import (
	"context"
	"fmt"
	"time"

	"github.com/santiagomed/architect/logger"
)

type Pipeline struct {
	runID       string
	stepManager StepManager
	state       *State
	publisher   StepPublisher
}

func NewPipeline(runID string, r *Request, sm StepManager, pub StepPublisher, l logger.Logger) (*Pipeline, error) {
	if r == nil || r.MasterPrompt == "" {
		return nil, fmt.Errorf("master prompt is required")
	}
	if pub == nil {
		pub = &DefaultStepPublisher{}
	}
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Pipeline{
		runID: runID,
		state: &State{
			Request:   r,
			Publisher: pub,
			Logger:    l,
		},
		publisher:   pub,
		stepManager: sm,
	}, nil
}

// Execute runs every step in order and returns the run's Result. A failed or
// cancelled run carries its error in Result.Err and no script.
func (p *Pipeline) Execute(ctx context.Context) Result {
	res := Result{RunID: p.runID}
	steps := p.stepManager.GetSteps()
	p.state.Logger.Info("Starting pipeline execution")
	for i, stepType := range steps {
		select {
		case <-ctx.Done():
			p.state.Logger.Info("Pipeline execution cancelled")
			res.Err = ctx.Err()
			p.publisher.Error(stepType, res.Err)
			return res
		default:
		}

		p.state.Logger.Info(fmt.Sprintf("Attempting to execute step %d: %v", i, stepType))
		step := p.stepManager.GetStep(stepType)
		if step == nil {
			p.state.Logger.Error(fmt.Sprintf("Step %v not found", stepType))
			res.Err = fmt.Errorf("step %v not found", stepType)
			p.publisher.Error(stepType, res.Err)
			return res
		}

		res.Stage = stepType
		startTime := time.Now()
		next, err := step.Execute(ctx, p.state, res)
		if err == nil && ctx.Err() != nil {
			// Steps that degrade on errors still end a cancelled run.
			err = ctx.Err()
		}
		if err != nil {
			p.state.Logger.Error(fmt.Sprintf("Error executing step %v", stepType))
			res.Err = err
			p.publisher.Error(stepType, err)
			return res
		}
		res = next
		duration := time.Since(startTime)
		p.state.Logger.Info(fmt.Sprintf("Step %v completed in %v", stepType, duration))
		p.publisher.PublishStep(stepType)

		if i < len(steps)-1 {
			p.state.Logger.Info(fmt.Sprintf("Transitioning from step %v to step %v", stepType, steps[i+1]))
		}
	}

	res.Stage = Done
	p.publisher.PublishStep(Done)
	p.state.Logger.Info("Pipeline execution completed")
	return res
}

type StepPublisher interface {
	PublishStep(step StepType)
	PublishSection(index, total int, name string)
	Error(step StepType, err error)
}

type DefaultStepPublisher struct{}

func (p *DefaultStepPublisher) PublishStep(step StepType) {}

func (p *DefaultStepPublisher) PublishSection(index, total int, name string) {}

func (p *DefaultStepPublisher) Error(step StepType, err error) {}
