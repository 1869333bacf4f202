package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/santiagomed/architect/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEngine_Run(t *testing.T) {
	mockLLM := new(MockLLM)
	mockLLM.On("GetCompletion", planningCall, mock.Anything).Return(twoStepPlan, nil)
	mockLLM.On("GetCompletion", sectionCall, mock.Anything).Return("pass", nil)
	mockLLM.On("GetCompletion", refineCall, mock.Anything).Return("pass", nil)

	var seenRunID string
	engine := NewEngine(func(ctx context.Context, runID string) (llm.LlmClient, error) {
		seenRunID = runID
		return mockLLM, nil
	}, nil, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)
	defer engine.Shutdown(time.Second)

	res := engine.Run(context.Background(), NewRequest("greeter", 2), nil)

	require.NoError(t, res.Err)
	assert.Equal(t, StatusReady, res.Status())
	assert.Equal(t, seenRunID, res.RunID)
	assert.NotEmpty(t, res.RunID)
}

func TestEngine_ClientFactoryError(t *testing.T) {
	engine := NewEngine(func(ctx context.Context, runID string) (llm.LlmClient, error) {
		return nil, errors.New("no api key")
	}, nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)
	defer engine.Shutdown(time.Second)

	res := engine.Run(context.Background(), NewRequest("greeter", 2), nil)
	assert.EqualError(t, res.Err, "no api key")
	assert.Equal(t, StatusFailed, res.Status())
}

func TestEngine_SubmitAfterShutdown(t *testing.T) {
	engine := NewEngine(func(ctx context.Context, runID string) (llm.LlmClient, error) {
		return new(MockLLM), nil
	}, nil, 1)
	engine.Start(context.Background())
	engine.Shutdown(time.Second)

	_, ch := engine.Submit(context.Background(), NewRequest("greeter", 2), nil)
	select {
	case res := <-ch:
		assert.ErrorIs(t, res.Err, ErrEngineStopped)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}
}

func TestEngine_CancelRun(t *testing.T) {
	block := make(chan struct{})
	mockLLM := new(MockLLM)
	mockLLM.On("GetCompletion", planningCall, mock.Anything).Run(func(mock.Arguments) {
		<-block
	}).Return(twoStepPlan, nil)

	engine := NewEngine(func(ctx context.Context, runID string) (llm.LlmClient, error) {
		return mockLLM, nil
	}, nil, 1)
	engine.Start(context.Background())
	defer engine.Shutdown(time.Second)

	runCtx, cancel := context.WithCancel(context.Background())
	_, ch := engine.Submit(runCtx, NewRequest("greeter", 2), nil)

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(block)

	select {
	case res := <-ch:
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Empty(t, res.Script())
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for result")
	}
	mockLLM.AssertNotCalled(t, "GetCompletion", sectionCall, mock.Anything)
}
