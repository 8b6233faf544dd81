// Package prometheus provides Prometheus-backed implementations of
// pkg/metrics's instrumentation interfaces, registered against
// metrics.GetRegistry() the way the teacher's own
// pkg/metrics/prometheus package wires its cache/S3 metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/module/nfsclient/pkg/metrics"
)

func init() {
	metrics.RegisterPoolMetricsConstructor(newPoolMetrics)
}

type poolMetrics struct {
	leasesAcquired     *prometheus.CounterVec
	leasesReleased     *prometheus.CounterVec
	waitDuration       *prometheus.HistogramVec
	connectionsBuilt   *prometheus.CounterVec
	connectionsDisposed *prometheus.CounterVec
	outstanding        *prometheus.GaugeVec
	idle               *prometheus.GaugeVec
}

func newPoolMetrics() metrics.PoolMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &poolMetrics{
		leasesAcquired: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_pool_leases_acquired_total",
				Help: "Total number of connection leases acquired from the pool",
			},
			[]string{"server"},
		),
		leasesReleased: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_pool_leases_released_total",
				Help: "Total number of connection leases released back to the pool",
			},
			[]string{"server"},
		),
		waitDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "nfsclient_pool_lease_wait_seconds",
				Help: "Time a caller waited for a pooled connection to become available",
				Buckets: []float64{
					0, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30,
				},
			},
			[]string{"server"},
		),
		connectionsBuilt: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_pool_connections_built_total",
				Help: "Total number of new connections built by the pool factory",
			},
			[]string{"server"},
		),
		connectionsDisposed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_pool_connections_disposed_total",
				Help: "Total number of pooled connections disposed of, by reason",
			},
			[]string{"server", "reason"},
		),
		outstanding: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nfsclient_pool_outstanding_connections",
				Help: "Current number of leased-plus-idle connections per server",
			},
			[]string{"server"},
		),
		idle: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nfsclient_pool_idle_connections",
				Help: "Current number of idle (unleased) connections per server",
			},
			[]string{"server"},
		),
	}
}

func (m *poolMetrics) RecordLeaseAcquired(server string, waited time.Duration) {
	m.leasesAcquired.WithLabelValues(server).Inc()
	m.waitDuration.WithLabelValues(server).Observe(waited.Seconds())
}

func (m *poolMetrics) RecordLeaseReleased(server string) {
	m.leasesReleased.WithLabelValues(server).Inc()
}

func (m *poolMetrics) RecordConnectionBuilt(server string) {
	m.connectionsBuilt.WithLabelValues(server).Inc()
}

func (m *poolMetrics) RecordConnectionDisposed(server, reason string) {
	m.connectionsDisposed.WithLabelValues(server, reason).Inc()
}

func (m *poolMetrics) SetOccupancy(server string, outstanding, idle int) {
	m.outstanding.WithLabelValues(server).Set(float64(outstanding))
	m.idle.WithLabelValues(server).Set(float64(idle))
}
