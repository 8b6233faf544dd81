// Package metrics defines optional, nil-safe instrumentation interfaces
// for the connection pool, health checker, and RPC transport. Concrete
// Prometheus implementations live in pkg/metrics/prometheus; this
// package imports only the prometheus registry type, and with metrics
// disabled every constructor returns nil and every helper is a no-op.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	enabled    atomic.Bool
	registryMu sync.Mutex
	registry   *prometheus.Registry
)

// InitRegistry enables metrics collection and returns the Prometheus
// registry subsequent NewPoolMetrics/NewHealthMetrics/NewRPCMetrics
// calls register against. Safe to call more than once; only the first
// call creates a registry, later calls return the existing one.
func InitRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
		enabled.Store(true)
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the active registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry
}
