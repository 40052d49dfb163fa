// Package metrics provides an audit sink that turns audit events into
// Prometheus collectors, and the HTTP handler that exposes them.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/concierge/internal/core/domain"
	"github.com/custodia-labs/concierge/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.AuditSink = (*Sink)(nil)

const namespace = "concierge"

// Sink holds the collectors updated from audit events.
type Sink struct {
	QueriesTotal        *prometheus.CounterVec
	QueryLatency        *prometheus.HistogramVec
	RoutingTotal        *prometheus.CounterVec
	RetrievalTotal      *prometheus.CounterVec
	RetrievalConfidence *prometheus.HistogramVec
	ValidationRejects   *prometheus.CounterVec
	ErrorsTotal         prometheus.Counter
	AuditDropped        prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses
// a fresh private registry.
func New(reg *prometheus.Registry) *Sink {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Sink{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Answered queries by final strategy and whether the answer was a refusal.",
			},
			[]string{"strategy", "refused"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_latency_seconds",
				Help:      "End-to-end query latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"strategy"},
		),
		RoutingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routing_decisions_total",
				Help:      "Routing decisions by first strategy and fallback flag.",
			},
			[]string{"strategy", "always_fallback"},
		),
		RetrievalTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retrievals_total",
				Help:      "Retrieval outcomes by strategy and verdict.",
			},
			[]string{"strategy", "verdict"},
		),
		RetrievalConfidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieval_confidence",
				Help:      "Best-hit confidence of each retrieval.",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"strategy"},
		),
		ValidationRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_rejections_total",
				Help:      "Queries rejected by the validator, by reason.",
			},
			[]string{"reason"},
		),
		ErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exhausted_total",
				Help:      "Queries that failed after every strategy errored.",
			},
		),
		AuditDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_events_dropped_total",
				Help:      "Audit events dropped because the audit queue was full.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		s.QueriesTotal,
		s.QueryLatency,
		s.RoutingTotal,
		s.RetrievalTotal,
		s.RetrievalConfidence,
		s.ValidationRejects,
		s.ErrorsTotal,
		s.AuditDropped,
	)
	return s
}

// Emit updates the collectors for one event.
func (s *Sink) Emit(_ context.Context, event domain.AuditEvent) {
	switch event.Stage {
	case domain.StageValidation:
		s.ValidationRejects.WithLabelValues(event.Reason).Inc()

	case domain.StageRouting:
		fallback, _ := event.Fields["always_fallback"].(bool)
		s.RoutingTotal.WithLabelValues(string(event.Strategy), strconv.FormatBool(fallback)).Inc()

	case domain.StageRetrieval:
		strategy := string(event.Strategy)
		s.RetrievalTotal.WithLabelValues(strategy, event.Decision).Inc()
		s.RetrievalConfidence.WithLabelValues(strategy).Observe(event.Confidence)

	case domain.StageAnswer:
		refused, _ := event.Fields["refused"].(bool)
		strategy := string(event.Strategy)
		if strategy == "" {
			strategy = "none"
		}
		s.QueriesTotal.WithLabelValues(strategy, strconv.FormatBool(refused)).Inc()
		s.QueryLatency.WithLabelValues(strategy).Observe(float64(event.LatencyMS) / 1000)

	case domain.StageError:
		s.ErrorsTotal.Inc()
	}
}

// RecordDrop counts one dropped audit event.
func (s *Sink) RecordDrop() {
	s.AuditDropped.Inc()
}

// Handler returns the scrape handler for the sink's registry.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}
