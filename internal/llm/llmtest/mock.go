// Package llmtest provides a function-field mock of llm.Service.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/hpungsan/tango/internal/llm"
)

// Ensure, that ServiceMock does implement llm.Service.
var _ llm.Service = &ServiceMock{}

// ServiceMock is a mock implementation of llm.Service.
type ServiceMock struct {
	// CompleteFunc mocks the Complete method.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (string, error)

	// CompleteVisionFunc mocks the CompleteVision method.
	CompleteVisionFunc func(ctx context.Context, req llm.VisionRequest) (string, error)

	calls struct {
		Complete       []llm.CompletionRequest
		CompleteVision []llm.VisionRequest
	}
	lockComplete       sync.RWMutex
	lockCompleteVision sync.RWMutex
}

// Complete calls CompleteFunc.
func (m *ServiceMock) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if m.CompleteFunc == nil {
		panic("ServiceMock.CompleteFunc: method is nil but Service.Complete was just called")
	}
	m.lockComplete.Lock()
	m.calls.Complete = append(m.calls.Complete, req)
	m.lockComplete.Unlock()
	return m.CompleteFunc(ctx, req)
}

// CompleteCalls gets all the calls that were made to Complete.
func (m *ServiceMock) CompleteCalls() []llm.CompletionRequest {
	m.lockComplete.RLock()
	defer m.lockComplete.RUnlock()
	return append([]llm.CompletionRequest(nil), m.calls.Complete...)
}

// CompleteVision calls CompleteVisionFunc.
func (m *ServiceMock) CompleteVision(ctx context.Context, req llm.VisionRequest) (string, error) {
	if m.CompleteVisionFunc == nil {
		panic("ServiceMock.CompleteVisionFunc: method is nil but Service.CompleteVision was just called")
	}
	m.lockCompleteVision.Lock()
	m.calls.CompleteVision = append(m.calls.CompleteVision, req)
	m.lockCompleteVision.Unlock()
	return m.CompleteVisionFunc(ctx, req)
}

// CompleteVisionCalls gets all the calls that were made to CompleteVision.
func (m *ServiceMock) CompleteVisionCalls() []llm.VisionRequest {
	m.lockCompleteVision.RLock()
	defer m.lockCompleteVision.RUnlock()
	return append([]llm.VisionRequest(nil), m.calls.CompleteVision...)
}

// ByStage returns a mock whose Complete answers from replies keyed by the
// request stage. Unknown stages fail the call.
func ByStage(replies map[string]string) *ServiceMock {
	return &ServiceMock{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (string, error) {
			if reply, ok := replies[req.Stage]; ok {
				return reply, nil
			}
			return "", fmt.Errorf("llmtest: no reply scripted for stage %q", req.Stage)
		},
		CompleteVisionFunc: func(_ context.Context, req llm.VisionRequest) (string, error) {
			if reply, ok := replies[req.Stage]; ok {
				return reply, nil
			}
			return "", fmt.Errorf("llmtest: no reply scripted for stage %q", req.Stage)
		},
	}
}

// Sequence returns a mock whose Complete answers with replies in order.
// Calls past the end fail.
func Sequence(replies ...string) *ServiceMock {
	var mu sync.Mutex
	next := 0
	return &ServiceMock{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if next >= len(replies) {
				return "", fmt.Errorf("llmtest: unexpected call %d (stage %q)", next+1, req.Stage)
			}
			reply := replies[next]
			next++
			return reply, nil
		},
	}
}

// Failing returns a mock whose every call fails with err.
func Failing(err error) *ServiceMock {
	return &ServiceMock{
		CompleteFunc: func(context.Context, llm.CompletionRequest) (string, error) {
			return "", err
		},
		CompleteVisionFunc: func(context.Context, llm.VisionRequest) (string, error) {
			return "", err
		},
	}
}
