package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/module/nfsclient/pkg/metrics"
)

func init() {
	metrics.RegisterHealthMetricsConstructor(newHealthMetrics)
}

type healthMetrics struct {
	transitions *prometheus.CounterVec
	status      *prometheus.GaugeVec
}

func newHealthMetrics() metrics.HealthMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &healthMetrics{
		transitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_pool_health_transitions_total",
				Help: "Total number of health status transitions, by origin and destination status",
			},
			[]string{"server", "from", "to"},
		),
		status: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nfsclient_pool_health_status",
				Help: "Current health status per server (0=healthy, 1=degraded, 2=unhealthy)",
			},
			[]string{"server"},
		),
	}
}

func (m *healthMetrics) RecordTransition(server, from, to string) {
	m.transitions.WithLabelValues(server, from, to).Inc()
}

func (m *healthMetrics) SetStatus(server, status string) {
	var v float64
	switch status {
	case "degraded":
		v = 1
	case "unhealthy":
		v = 2
	}
	m.status.WithLabelValues(server).Set(v)
}
