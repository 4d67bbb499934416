package observability

import (
	"context"
	"errors"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "conduit"

// Task outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeAborted = "aborted"
	OutcomePanic   = "panic"
)

// Metrics collects task and message counters for one or more systems.
type Metrics struct {
	tasksStarted  *prometheus.CounterVec
	tasksFinished *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	tasksRunning  prometheus.Gauge
	messages      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_started_total",
			Help:      "Tasks spawned, by task name.",
		}, []string{"task"}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Tasks returned, by task name and outcome.",
		}, []string{"task", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time between a task starting and returning.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Tasks started but not yet returned.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_forwarded_total",
			Help:      "Values relayed by forwarding links, by link.",
		}, []string{"link"}),
	}
	if reg != nil {
		reg.MustRegister(m.tasksStarted, m.tasksFinished, m.taskDuration, m.tasksRunning, m.messages)
	}
	return m
}

// Outcome classifies a finished task.
func Outcome(e *domain.TaskEvent) string {
	switch {
	case e.Err == nil:
		return OutcomeSuccess
	case e.Panicked:
		return OutcomePanic
	case e.Aborted && errors.Is(e.Err, context.Canceled):
		return OutcomeAborted
	}
	return OutcomeFailure
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskStart: func(_ context.Context, e *domain.TaskEvent) {
			m.tasksStarted.WithLabelValues(e.Task).Inc()
			m.tasksRunning.Inc()
		},
		OnTaskFinish: func(_ context.Context, e *domain.TaskEvent) {
			m.tasksRunning.Dec()
			m.tasksFinished.WithLabelValues(e.Task, Outcome(e)).Inc()
			m.taskDuration.WithLabelValues(e.Task).Observe(e.Duration.Seconds())
		},
		OnMessage: func(_ context.Context, e *domain.MessageEvent) {
			m.messages.WithLabelValues(e.Link).Inc()
		},
	}
}

func (m *Metrics) TasksStarted() *prometheus.CounterVec   { return m.tasksStarted }
func (m *Metrics) TasksFinished() *prometheus.CounterVec  { return m.tasksFinished }
func (m *Metrics) TaskDuration() *prometheus.HistogramVec { return m.taskDuration }
func (m *Metrics) TasksRunning() prometheus.Gauge         { return m.tasksRunning }
func (m *Metrics) Messages() *prometheus.CounterVec       { return m.messages }
