package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PlanStep describes one section of the script to generate.
type PlanStep struct {
	SectionName string `json:"section_name"`
	Description string `json:"description"`
}

// Plan is the ordered list of sections. Order is generation and assembly order.
type Plan []PlanStep

// ParseError is returned when the planning reply is not a usable plan. Raw holds
// the reply as received so it can be shown for diagnosis.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing plan: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errMissingPlan = errors.New(`response has no "plan" key`)
	errEmptyPlan   = errors.New("plan contains no sections")
)

// ParsePlan decodes a {"plan": [...]} reply. Extra keys are ignored; the
// reply is never repaired.
func ParsePlan(raw string) (Plan, error) {
	clean := StripCodeFences(raw)

	var doc struct {
		Plan *[]PlanStep `json:"plan"`
	}
	if err := json.Unmarshal([]byte(clean), &doc); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if doc.Plan == nil {
		return nil, &ParseError{Raw: raw, Err: errMissingPlan}
	}
	if len(*doc.Plan) == 0 {
		return nil, &ParseError{Raw: raw, Err: errEmptyPlan}
	}

	plan := make(Plan, 0, len(*doc.Plan))
	for i, step := range *doc.Plan {
		step.SectionName = strings.TrimSpace(step.SectionName)
		if step.SectionName == "" {
			step.SectionName = fmt.Sprintf("Section %d", i+1)
		}
		plan = append(plan, step)
	}
	return plan, nil
}

// Names returns the section names in plan order.
func (p Plan) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.SectionName
	}
	return names
}
