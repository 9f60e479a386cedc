package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rahul/agentic/internal/events"
)

var (
	// TasksFinished counts terminal tasks. Labels: status (succeeded, failed)
	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentic",
			Subsystem: "orchestrator",
			Name:      "tasks_finished_total",
			Help:      "Total number of tasks that reached a terminal status",
		},
		[]string{"status"},
	)

	// TasksActive is the number of tasks currently being driven.
	TasksActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agentic",
			Subsystem: "orchestrator",
			Name:      "tasks_active",
			Help:      "Number of tasks currently running",
		},
	)

	// Iterations counts finished iterations. Labels: result (ok, fail)
	Iterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentic",
			Subsystem: "orchestrator",
			Name:      "iterations_total",
			Help:      "Total number of loop iterations by result",
		},
		[]string{"result"},
	)

	// ToolCalls counts executed plan steps. Labels: tool, ok
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentic",
			Subsystem: "executor",
			Name:      "tool_calls_total",
			Help:      "Total number of plan steps executed",
		},
		[]string{"tool", "ok"},
	)

	// VerifyDuration tracks DoD command wall time.
	VerifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "agentic",
			Subsystem: "orchestrator",
			Name:      "verify_duration_seconds",
			Help:      "Duration of Definition-of-Done verification runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		},
	)

	// PlannerDuration tracks planner calls. Labels: result (success, error)
	PlannerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agentic",
			Subsystem: "planner",
			Name:      "duration_seconds",
			Help:      "Duration of planner calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// ObservePlanner records one planner call.
func ObservePlanner(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	PlannerDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveVerify records one DoD run.
func ObserveVerify(durationMs int64) {
	VerifyDuration.Observe(float64(durationMs) / 1000)
}

// MetricsSink updates counters from lifecycle events.
var MetricsSink events.Sink = events.SinkFunc(func(evt events.Event) {
	switch evt.Type {
	case events.TaskStarted:
		TasksActive.Inc()
	case events.IterFinished:
		if status, ok := evt.Payload["status"].(string); ok {
			Iterations.WithLabelValues(status).Inc()
		}
	case events.ToolCalled:
		tool, _ := evt.Payload["tool"].(string)
		ok, _ := evt.Payload["ok"].(bool)
		okLabel := "false"
		if ok {
			okLabel = "true"
		}
		ToolCalls.WithLabelValues(tool, okLabel).Inc()
	case events.TaskFinished:
		TasksActive.Dec()
		if status, ok := evt.Payload["status"].(string); ok {
			TasksFinished.WithLabelValues(status).Inc()
		}
	}
})
