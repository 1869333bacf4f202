package server

import (
	"context"
	"sync"
	"time"

	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/logger"
)

// run is the server-side record of one pipeline run. Progress fields are
// written by the engine worker through runPublisher.
type run struct {
	id        string
	prompt    string
	createdAt time.Time
	cancel    context.CancelFunc

	mu             sync.RWMutex
	stage          core.StepType
	sectionsDone   int
	sectionsTotal  int
	currentSection string
	result         *core.Result
}

type runView struct {
	RunID          string        `json:"run_id"`
	Status         core.Status   `json:"status"`
	Stage          core.StepType `json:"stage"`
	Plan           core.Plan     `json:"plan,omitempty"`
	SectionsDone   int           `json:"sections_done"`
	SectionsTotal  int           `json:"sections_total"`
	CurrentSection string        `json:"current_section,omitempty"`
	Script         string        `json:"script,omitempty"`
	Refined        bool          `json:"refined"`
	Error          string        `json:"error,omitempty"`
	RawResponse    string        `json:"raw_response,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

func (r *run) finish(res core.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = &res
	r.stage = res.Stage
	if res.Status() == core.StatusReady {
		r.sectionsDone = len(res.Blocks)
		r.sectionsTotal = len(res.Plan)
		r.currentSection = ""
	}
}

// finished returns the final result, or false while the run is in flight.
func (r *run) finished() (core.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.result == nil {
		return core.Result{}, false
	}
	return *r.result, true
}

func (r *run) view() runView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := runView{
		RunID:          r.id,
		Status:         core.StatusRunning,
		Stage:          r.stage,
		SectionsDone:   r.sectionsDone,
		SectionsTotal:  r.sectionsTotal,
		CurrentSection: r.currentSection,
		CreatedAt:      r.createdAt,
	}
	if r.result == nil {
		return v
	}
	res := r.result
	v.Status = res.Status()
	v.Plan = res.Plan
	v.Script = res.Script()
	v.Refined = res.Refined
	v.RawResponse = res.RawResponse()
	if res.Err != nil {
		v.Error = res.Err.Error()
	}
	return v
}

// runPublisher turns pipeline events into progress on a run.
type runPublisher struct {
	run    *run
	logger logger.Logger
}

func (p *runPublisher) PublishStep(step core.StepType) {
	p.run.mu.Lock()
	defer p.run.mu.Unlock()
	if step < core.Done {
		p.run.stage = step + 1
	} else {
		p.run.stage = core.Done
	}
	if step == core.GenerateSections {
		p.run.sectionsDone = p.run.sectionsTotal
		p.run.currentSection = ""
	}
}

func (p *runPublisher) PublishSection(index, total int, name string) {
	p.run.mu.Lock()
	defer p.run.mu.Unlock()
	p.run.sectionsDone = index
	p.run.sectionsTotal = total
	p.run.currentSection = name
}

func (p *runPublisher) Error(step core.StepType, err error) {
	p.logger.Error("Run failed at " + step.String() + ": " + err.Error())
}

// runStore keeps at most max runs. When full, the oldest finished runs are
// dropped first; runs still in flight are never dropped.
type runStore struct {
	mu    sync.RWMutex
	runs  map[string]*run
	order []string
	max   int
}

func newRunStore(max int) *runStore {
	return &runStore{runs: make(map[string]*run), max: max}
}

func (s *runStore) put(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.id] = r
	s.order = append(s.order, r.id)
	s.evict()
}

func (s *runStore) evict() {
	if s.max < 1 || len(s.runs) <= s.max {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if len(s.runs) > s.max {
			if _, done := s.runs[id].finished(); done {
				delete(s.runs, id)
				continue
			}
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *runStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func (s *runStore) get(id string) (*run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}
