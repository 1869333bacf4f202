package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santiagomed/architect/llm"
	"github.com/santiagomed/architect/logger"
)

var ErrEngineStopped = errors.New("engine is shut down")

// ClientFactory builds the generation client for one run.
type ClientFactory func(ctx context.Context, runID string) (llm.LlmClient, error)

type ExecutionRequest struct {
	RunID      string
	Ctx        context.Context
	Request    *Request
	Publisher  StepPublisher
	ResultChan chan Result
	CreatedAt  time.Time
}

// Engine runs pipelines on a fixed number of workers. Each run is sequential;
// separate runs share nothing.
type Engine struct {
	newClient    ClientFactory
	logger       logger.Logger
	requests     chan ExecutionRequest
	workers      int
	workerWG     sync.WaitGroup
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewEngine(newClient ClientFactory, l logger.Logger, workers int) *Engine {
	if l == nil {
		l = logger.NewNullLogger()
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		newClient:    newClient,
		logger:       l,
		requests:     make(chan ExecutionRequest, 100),
		workers:      workers,
		shutdownChan: make(chan struct{}),
	}
}

func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.workerWG.Add(1)
		go e.worker(ctx)
	}
}

func (e *Engine) worker(ctx context.Context) {
	defer e.workerWG.Done()
	for {
		select {
		case req := <-e.requests:
			req.ResultChan <- e.execute(ctx, req)
			close(req.ResultChan)
		case <-ctx.Done():
			return
		case <-e.shutdownChan:
			return
		}
	}
}

func (e *Engine) execute(engineCtx context.Context, req ExecutionRequest) Result {
	parent := req.Ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(engineCtx, cancel)
	defer stop()

	l := e.logger.WithField("run_id", req.RunID)
	l.Debug("Run picked up")
	client, err := e.newClient(ctx, req.RunID)
	if err != nil {
		l.Error("Failed to create generation client: " + err.Error())
		return Result{RunID: req.RunID, Err: err}
	}

	pipeline, err := NewPipeline(req.RunID, req.Request, NewDefaultStepManager(client), req.Publisher, l)
	if err != nil {
		return Result{RunID: req.RunID, Err: err}
	}
	return pipeline.Execute(ctx)
}

// Submit queues a run and returns its ID and a channel that receives the
// Result once. Cancelling ctx abandons the run.
func (e *Engine) Submit(ctx context.Context, request *Request, pub StepPublisher) (string, <-chan Result) {
	runID := uuid.NewString()
	resultChan := make(chan Result, 1)
	req := ExecutionRequest{
		RunID:      runID,
		Ctx:        ctx,
		Request:    request,
		Publisher:  pub,
		ResultChan: resultChan,
		CreatedAt:  time.Now(),
	}
	select {
	case <-e.shutdownChan:
		resultChan <- Result{RunID: runID, Err: ErrEngineStopped}
		close(resultChan)
		return runID, resultChan
	default:
	}
	select {
	case e.requests <- req:
	case <-e.shutdownChan:
		resultChan <- Result{RunID: runID, Err: ErrEngineStopped}
		close(resultChan)
	}
	return runID, resultChan
}

// Run submits a request and waits for its result.
func (e *Engine) Run(ctx context.Context, request *Request, pub StepPublisher) Result {
	_, ch := e.Submit(ctx, request, pub)
	return <-ch
}

func (e *Engine) Shutdown(timeout time.Duration) {
	e.shutdownOnce.Do(func() { close(e.shutdownChan) })

	done := make(chan struct{})
	go func() {
		e.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("All workers shut down gracefully")
	case <-time.After(timeout):
		e.logger.Warn("Shutdown timed out, some workers may still be running")
	}
	e.drain()
}

// drain fails every run still queued so no caller waits forever.
func (e *Engine) drain() {
	for {
		select {
		case req := <-e.requests:
			req.ResultChan <- Result{RunID: req.RunID, Err: ErrEngineStopped}
			close(req.ResultChan)
		default:
			return
		}
	}
}
