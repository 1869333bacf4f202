package core

import (
	"errors"
)

type StepType int

const (
	NotStarted StepType = iota
	CreatePlan
	GenerateSections
	RefineScript
	Done
)

func (s StepType) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case CreatePlan:
		return "create_plan"
	case GenerateSections:
		return "generate_sections"
	case RefineScript:
		return "refine_script"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

func (s StepType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusFailed  Status = "failed"
	StatusReady   Status = "ready"
)

// Result is everything one pipeline run produced. Steps receive it by value
// and return the next version.
type Result struct {
	RunID         string
	Stage         StepType
	Plan          Plan
	Blocks        []CodeBlock
	Summaries     []string
	FinalScript   string
	RefinedScript string
	Refined       bool
	Err           error
}

func (r Result) Status() Status {
	switch {
	case r.Err != nil:
		return StatusFailed
	case r.Stage == Done:
		return StatusReady
	case r.Stage == NotStarted:
		return StatusIdle
	default:
		return StatusRunning
	}
}

// Script is the artifact handed to the user: the refined script when there is
// one, the assembled script otherwise. A failed run has no script.
func (r Result) Script() string {
	if r.Err != nil {
		return ""
	}
	if r.RefinedScript != "" {
		return r.RefinedScript
	}
	return r.FinalScript
}

// RawResponse returns the unparsable planning reply of a failed run, if any.
func (r Result) RawResponse() string {
	var pe *ParseError
	if errors.As(r.Err, &pe) {
		return pe.Raw
	}
	return ""
}
