package metrics

import "time"

// PoolMetrics observes pkg/pool's lease lifecycle and per-key
// occupancy. Implementations are optional: pkg/pool accepts a nil
// PoolMetrics and every method on this interface is called only
// through the package-level Record*/Set* helpers below, which no-op
// when passed nil.
type PoolMetrics interface {
	// RecordLeaseAcquired records a successful Pool.Get, including how
	// long the caller waited for a slot (zero if one was immediately
	// available).
	RecordLeaseAcquired(server string, waited time.Duration)

	// RecordLeaseReleased records a Lease.Release.
	RecordLeaseReleased(server string)

	// RecordConnectionBuilt records the Factory being invoked to create
	// a brand new pooled connection.
	RecordConnectionBuilt(server string)

	// RecordConnectionDisposed records a pooled connection being closed,
	// with reason one of "idle_timeout", "pool_closed".
	RecordConnectionDisposed(server string, reason string)

	// SetOccupancy reports a key's current idle/outstanding counts.
	SetOccupancy(server string, outstanding, idle int)
}

// NewPoolMetrics returns a Prometheus-backed PoolMetrics, or nil if
// metrics are disabled or pkg/metrics/prometheus was never imported.
func NewPoolMetrics() PoolMetrics {
	if !IsEnabled() || newPoolMetrics == nil {
		return nil
	}
	return newPoolMetrics()
}

// newPoolMetrics is populated by pkg/metrics/prometheus's init, which
// avoids an import cycle between this package and its Prometheus
// implementation.
var newPoolMetrics func() PoolMetrics

// RegisterPoolMetricsConstructor wires a concrete constructor in.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterPoolMetricsConstructor(constructor func() PoolMetrics) {
	newPoolMetrics = constructor
}

// RecordLeaseAcquired is a nil-safe wrapper around
// PoolMetrics.RecordLeaseAcquired.
func RecordLeaseAcquired(m PoolMetrics, server string, waited time.Duration) {
	if m != nil {
		m.RecordLeaseAcquired(server, waited)
	}
}

// RecordLeaseReleased is a nil-safe wrapper around
// PoolMetrics.RecordLeaseReleased.
func RecordLeaseReleased(m PoolMetrics, server string) {
	if m != nil {
		m.RecordLeaseReleased(server)
	}
}

// RecordConnectionBuilt is a nil-safe wrapper around
// PoolMetrics.RecordConnectionBuilt.
func RecordConnectionBuilt(m PoolMetrics, server string) {
	if m != nil {
		m.RecordConnectionBuilt(server)
	}
}

// RecordConnectionDisposed is a nil-safe wrapper around
// PoolMetrics.RecordConnectionDisposed.
func RecordConnectionDisposed(m PoolMetrics, server, reason string) {
	if m != nil {
		m.RecordConnectionDisposed(server, reason)
	}
}

// SetOccupancy is a nil-safe wrapper around PoolMetrics.SetOccupancy.
func SetOccupancy(m PoolMetrics, server string, outstanding, idle int) {
	if m != nil {
		m.SetOccupancy(server, outstanding, idle)
	}
}
