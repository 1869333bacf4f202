package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/logger"
)

type sectionMsg struct {
	index int
	total int
	name  string
}

type CliStepPublisher struct {
	stepChan    chan core.StepType
	sectionChan chan sectionMsg
	errorChan   chan error
	logger      logger.Logger
}

func NewCliStepPublisher(logger logger.Logger) *CliStepPublisher {
	return &CliStepPublisher{
		stepChan:    make(chan core.StepType, 100), // Buffer size of 100
		sectionChan: make(chan sectionMsg, 100),
		errorChan:   make(chan error, 10), // Buffer size of 10
		logger:      logger,
	}
}

func (p *CliStepPublisher) PublishStep(step core.StepType) {
	select {
	case p.stepChan <- step:
		p.logger.Debug(fmt.Sprintf("Successfully published step: %v", step))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish step: %v. Channel full.", step))
	}
}

func (p *CliStepPublisher) PublishSection(index, total int, name string) {
	select {
	case p.sectionChan <- sectionMsg{index: index, total: total, name: name}:
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish section %d: %s. Channel full.", index+1, name))
	}
}

func (p *CliStepPublisher) Error(step core.StepType, err error) {
	select {
	case p.errorChan <- err:
		p.logger.Debug(fmt.Sprintf("Successfully published error for step: %v", step))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish error for step: %v. Channel full.", step))
	}
}

// headlessPublisher prints progress as plain lines, for runs without a TTY.
type headlessPublisher struct {
	out io.Writer
}

var checkMark = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")

func (p *headlessPublisher) PublishStep(step core.StepType) {
	if step == core.Done {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", checkMark, stageText(step).past)
}

func (p *headlessPublisher) PublishSection(index, total int, name string) {
	fmt.Fprintf(p.out, "  [%d/%d] %s\n", index+1, total, name)
}

func (p *headlessPublisher) Error(step core.StepType, err error) {
	fmt.Fprintf(p.out, "✗ %s: %v\n", stageText(step).present, err)
}
