package metrics

import "time"

// RPCMetrics observes pkg/rpc.Client.Call latency and outcomes.
// Optional: pass nil to disable with zero overhead.
type RPCMetrics interface {
	// ObserveCall records one completed RPC, identified by its NFS/Mount/
	// Portmapper procedure name. err is the error Call returned, if any
	// (nil means the call was accepted and decoded successfully; this
	// does not look inside an NFS/v4 status code carried in a
	// successfully decoded reply).
	ObserveCall(procedure string, duration time.Duration, err error)
}

// NewRPCMetrics returns a Prometheus-backed RPCMetrics, or nil if
// metrics are disabled.
func NewRPCMetrics() RPCMetrics {
	if !IsEnabled() || newRPCMetrics == nil {
		return nil
	}
	return newRPCMetrics()
}

var newRPCMetrics func() RPCMetrics

// RegisterRPCMetricsConstructor wires a concrete constructor in. Called
// by pkg/metrics/prometheus during package initialization.
func RegisterRPCMetricsConstructor(constructor func() RPCMetrics) {
	newRPCMetrics = constructor
}

// ObserveCall is a nil-safe wrapper around RPCMetrics.ObserveCall.
func ObserveCall(m RPCMetrics, procedure string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveCall(procedure, duration, err)
	}
}
