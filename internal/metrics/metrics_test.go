package metrics_test

import (
	"github.com/myrjola/tutorai/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestRegister(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(registry))
	require.NoError(t, metrics.Register(registry), "registering twice is tolerated")

	metrics.ExecutionsTotal.WithLabelValues("output").Inc()
	metrics.FeedbackRequestsTotal.WithLabelValues("hint", "stream", "ok").Inc()
	metrics.FeedbackLatency.WithLabelValues("hint", "stream").Observe(0.2)
	metrics.AuthAttemptsTotal.WithLabelValues("AUTH_SUCCESS").Inc()
	metrics.StreamingConnections.Set(0)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	require.ElementsMatch(t, []string{
		"tutorai_executions_total",
		"tutorai_feedback_requests_total",
		"tutorai_feedback_latency_seconds",
		"tutorai_auth_attempts_total",
		"tutorai_streaming_connections_active",
	}, names)

	require.GreaterOrEqual(t, testutil.ToFloat64(metrics.ExecutionsTotal.WithLabelValues("output")), 1.0)
}
