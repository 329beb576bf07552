package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tango/internal/llm"
	"github.com/hpungsan/tango/internal/llm/llmtest"
)

func TestInstrumentService(t *testing.T) {
	m := New()
	svc := InstrumentService(llmtest.Sequence(`{"terms":[]}`), m)

	_, err := svc.Complete(context.Background(), llmtestRequest("extract"))
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), llmtestRequest("extract"))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("extract", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("extract", "error")))
}

func TestCounters(t *testing.T) {
	m := New()
	m.PipelineRun("success")
	m.PipelineRun("success")
	m.Committed("saved", 3)
	m.Committed("skipped", 0)
	m.LLMCall("translate", 2*time.Second, fmt.Errorf("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.committed.WithLabelValues("saved")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.committed.WithLabelValues("skipped")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PipelineRun("error")
	m.Committed("saved", 1)
	m.LLMCall("x", time.Second, nil)
	assert.Nil(t, m.Registry())

	svc := llmtest.Sequence("x")
	assert.Same(t, svc, InstrumentService(svc, nil))
}

func TestHandler(t *testing.T) {
	m := New()
	m.PipelineRun("needs_clarification")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `tango_pipeline_runs_total{status="needs_clarification"} 1`)
}

func llmtestRequest(stage string) llm.CompletionRequest {
	return llm.CompletionRequest{Stage: stage, Prompt: "x"}
}
