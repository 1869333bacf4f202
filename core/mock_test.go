package core

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"
)

// MockLLM is a mock implementation of the LLM client
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) GetCompletion(ctx context.Context, systemInstruction, userContent string) (string, error) {
	args := m.Called(systemInstruction, userContent)
	return args.String(0), args.Error(1)
}

func instructionContaining(s string) interface{} {
	return mock.MatchedBy(func(instr string) bool { return strings.Contains(instr, s) })
}

var (
	planningCall = instructionContaining("world-class software architect")
	sectionCall  = instructionContaining("expert Python programmer")
	summaryCall  = instructionContaining("compress finished code")
	refineCall   = instructionContaining("senior code reviewer")
)

func sectionNamed(name string) interface{} {
	return mock.MatchedBy(func(content string) bool {
		return strings.Contains(content, `section named "`+name+`"`)
	})
}

type recordingPublisher struct {
	steps    []StepType
	sections []string
	errs     []error
}

func (p *recordingPublisher) PublishStep(step StepType) { p.steps = append(p.steps, step) }

func (p *recordingPublisher) PublishSection(index, total int, name string) {
	p.sections = append(p.sections, name)
}

func (p *recordingPublisher) Error(step StepType, err error) { p.errs = append(p.errs, err) }
