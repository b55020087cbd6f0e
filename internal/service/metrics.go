package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for generation calls and
// pipeline runs. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	stages       *prometheus.CounterVec
	stageTime    *prometheus.HistogramVec
	workflows    *prometheus.CounterVec
	workflowTime prometheus.Histogram
}

// NewMetrics creates the instruments on a private registry that also
// carries the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelbuddy_generation_calls_total",
				Help: "Generation attempts by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travelbuddy_generation_call_duration_seconds",
				Help:    "Duration of individual generation attempts.",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"stage"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelbuddy_generation_retries_total",
				Help: "Retries scheduled by stage and error kind.",
			},
			[]string{"stage", "kind"},
		),
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelbuddy_stage_runs_total",
				Help: "Stage runs by stage and resulting status.",
			},
			[]string{"stage", "status"},
		),
		stageTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travelbuddy_stage_duration_seconds",
				Help:    "Duration of stage runs including retries.",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"stage"},
		),
		workflows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelbuddy_workflows_total",
				Help: "Pipeline runs by outcome.",
			},
			[]string{"outcome"},
		),
		workflowTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "travelbuddy_workflow_duration_seconds",
				Help:    "End-to-end pipeline duration.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
	m.registry.MustRegister(
		m.calls, m.callDuration, m.retries,
		m.stages, m.stageTime,
		m.workflows, m.workflowTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCall records one generation attempt.
func (m *Metrics) ObserveCall(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(stage, outcome).Inc()
	m.callDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncRetry records a scheduled retry.
func (m *Metrics) IncRetry(stage string, kind ErrorKind) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(stage, string(kind)).Inc()
}

// ObserveStage records a finished stage run.
func (m *Metrics) ObserveStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage, status).Inc()
	m.stageTime.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveWorkflow records a finished pipeline run.
func (m *Metrics) ObserveWorkflow(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.workflows.WithLabelValues(outcome).Inc()
	m.workflowTime.Observe(d.Seconds())
}

// Registry exposes the underlying registry for tests and extra collectors.
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
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
