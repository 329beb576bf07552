// Package metrics holds the Prometheus collectors for pipeline runs,
// Language Service calls and committed flashcards.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hpungsan/tango/internal/llm"
)

// Metrics is a set of registered collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pipelineRuns *prometheus.CounterVec
	llmCalls     *prometheus.CounterVec
	llmDuration  *prometheus.HistogramVec
	committed    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		pipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tango",
			Name:      "pipeline_runs_total",
			Help:      "Processing runs by result status.",
		}, []string{"status"}),
		llmCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tango",
			Name:      "llm_calls_total",
			Help:      "Language Service calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		llmDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tango",
			Name:      "llm_call_duration_seconds",
			Help:      "Language Service call latency by stage.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"stage"}),
		committed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tango",
			Name:      "flashcards_committed_total",
			Help:      "Flashcards written or skipped on confirm, by action.",
		}, []string{"action"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// PipelineRun records one processing run.
func (m *Metrics) PipelineRun(status string) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(status).Inc()
}

// Committed records flashcards by confirm action (saved, replaced, skipped).
func (m *Metrics) Committed(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.committed.WithLabelValues(action).Add(float64(n))
}

// LLMCall records one Language Service call.
func (m *Metrics) LLMCall(stage string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.llmCalls.WithLabelValues(stage, outcome).Inc()
	m.llmDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// InstrumentService wraps svc so every call is counted and timed.
func InstrumentService(svc llm.Service, m *Metrics) llm.Service {
	if m == nil {
		return svc
	}
	return &instrumented{next: svc, m: m}
}

type instrumented struct {
	next llm.Service
	m    *Metrics
}

func (i *instrumented) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, req)
	i.m.LLMCall(req.Stage, time.Since(start), err)
	return out, err
}

func (i *instrumented) CompleteVision(ctx context.Context, req llm.VisionRequest) (string, error) {
	start := time.Now()
	out, err := i.next.CompleteVision(ctx, req)
	i.m.LLMCall(req.Stage, time.Since(start), err)
	return out, err
}
