package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/module/nfsclient/pkg/metrics"
)

func init() {
	metrics.RegisterRPCMetricsConstructor(newRPCMetrics)
}

type rpcMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newRPCMetrics() metrics.RPCMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &rpcMetrics{
		calls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_rpc_calls_total",
				Help: "Total number of ONC/RPC calls, by procedure and outcome",
			},
			[]string{"procedure", "outcome"}, // outcome: "ok", "error"
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "nfsclient_rpc_call_duration_seconds",
				Help: "Duration of ONC/RPC calls by procedure",
				Buckets: []float64{
					0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30,
				},
			},
			[]string{"procedure"},
		),
	}
}

func (m *rpcMetrics) ObserveCall(procedure string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calls.WithLabelValues(procedure, outcome).Inc()
	m.duration.WithLabelValues(procedure).Observe(duration.Seconds())
}
