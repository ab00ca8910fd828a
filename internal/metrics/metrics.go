// Package metrics exports engine activity to Prometheus through lifecycle hooks.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes recorded by ObserveRun.
const (
	OutcomeAnswered  = "answered"
	OutcomeSuspended = "suspended"
	OutcomeFailed    = "failed"
	OutcomeBusy      = "busy"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	nodeVisits   *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	toolResults  *prometheus.CounterVec
	suspensions  *prometheus.CounterVec
	runs         *prometheus.CounterVec
	liveSessions prometheus.GaugeFunc
}

// New registers the collectors on a fresh registry. liveSessions, when
// not nil, is sampled for the jarvis_live_sessions gauge.
func New(liveSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvis_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"graph", "node"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jarvis_capability_duration_seconds",
				Help:    "Duration of capability invocations",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"capability"},
		),
		toolResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvis_capability_results_total",
				Help: "Capability results by kind",
			},
			[]string{"capability", "kind"},
		),
		suspensions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvis_suspensions_total",
				Help: "Questions raised to the human",
			},
			[]string{"graph"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvis_runs_total",
				Help: "Request cycles by outcome",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(
		m.nodeVisits, m.toolDuration, m.toolResults, m.suspensions, m.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if liveSessions != nil {
		m.liveSessions = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "jarvis_live_sessions",
				Help: "Connected websocket sessions",
			},
			func() float64 { return float64(liveSessions()) },
		)
		m.registry.MustRegister(m.liveSessions)
	}
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks records node visits, capability calls and suspensions.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.Graph, e.NodeID).Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			m.toolDuration.WithLabelValues(e.Invocation.Name).Observe(e.Duration.Seconds())
			if e.Result != nil {
				m.toolResults.WithLabelValues(e.Invocation.Name, e.Result.Kind.String()).Inc()
			}
		},
		OnSuspend: func(_ context.Context, e *domain.SuspendEvent) {
			m.suspensions.WithLabelValues(e.Graph).Inc()
		},
	}
}

// ObserveRun counts a request cycle. It satisfies session.RunObserver.
func (m *Metrics) ObserveRun(_ context.Context, _ string, reply session.Reply, err error) {
	m.runs.WithLabelValues(Outcome(reply, err)).Inc()
}

// Outcome classifies a request cycle.
func Outcome(reply session.Reply, err error) string {
	var inputErr *session.InputError
	switch {
	case errors.Is(err, domain.ErrThreadBusy):
		return OutcomeBusy
	case errors.As(err, &inputErr), errors.Is(err, domain.ErrNoPendingSuspension):
		return OutcomeRejected
	case err != nil:
		return OutcomeError
	case reply.Suspended:
		return OutcomeSuspended
	case reply.IsError:
		return OutcomeFailed
	default:
		return OutcomeAnswered
	}
}
