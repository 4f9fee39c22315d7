// Package metrics defines the Prometheus collectors of the tutoring server.
package metrics

import (
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// FeedbackBuckets suit language model latencies from 100ms to two minutes.
var FeedbackBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// ExecutionsTotal counts sandbox executions by outcome (output, fault).
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorai_executions_total",
			Help: "Sandbox executions",
		},
		[]string{"outcome"},
	)

	// FeedbackRequestsTotal counts AI feedback requests by mode (hint, evaluation), path (stream, complete) and
	// status (ok, error).
	FeedbackRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorai_feedback_requests_total",
			Help: "AI feedback requests",
		},
		[]string{"mode", "path", "status"},
	)

	// FeedbackLatency records the time until a feedback request finished.
	FeedbackLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorai_feedback_latency_seconds",
			Help:    "AI feedback latency",
			Buckets: FeedbackBuckets,
		},
		[]string{"mode", "path"},
	)

	// AuthAttemptsTotal counts authentication attempts by event kind.
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorai_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"event"},
	)

	// StreamingConnections tracks the number of open server-sent event streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tutorai_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)
)

// Register registers all collectors with r. Collectors that are already registered are skipped so that several
// servers can share a registerer within one process.
func Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		ExecutionsTotal,
		FeedbackRequestsTotal,
		FeedbackLatency,
		AuthAttemptsTotal,
		StreamingConnections,
	} {
		if err := r.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return errors.Wrap(err, "register collector")
		}
	}
	return nil
}
