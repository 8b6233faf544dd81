package pool

import (
	"context"
	"sync"
	"time"

	"github.com/module/nfsclient/pkg/metrics"
)

// Status is a pooled key's liveness, per spec.md §4.10's health model.
type Status int

const (
	Healthy Status = iota
	Degraded
	Unhealthy
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// DefaultHealthInterval is how often a HealthChecker probes.
const DefaultHealthInterval = 30 * time.Second

// DefaultFailureThreshold is how many consecutive failures flip a
// checker from Degraded to Unhealthy.
const DefaultFailureThreshold = 3

// Probe issues a harmless request against the pooled resource and
// reports whether it succeeded. For v3 pools this is EXPORT; for v4,
// a SEQUENCE-only compound.
type Probe func(ctx context.Context) error

// Event is published whenever a HealthChecker's status changes.
type Event struct {
	Key Key
	Old Status
	New Status
}

// HealthChecker periodically probes one pooled key and tracks
// consecutive failures, transitioning Healthy -> Degraded (first
// failure) -> Unhealthy (after FailureThreshold consecutive failures),
// and back to Healthy on any success.
type HealthChecker struct {
	key              Key
	probe            Probe
	interval         time.Duration
	failureThreshold int
	metrics          metrics.HealthMetrics

	mu                  sync.Mutex
	status              Status
	consecutiveFailures int

	subMu       sync.Mutex
	subscribers []chan Event

	stop chan struct{}
	done chan struct{}
}

// NewHealthChecker returns a checker for key, not yet started.
func NewHealthChecker(key Key, probe Probe, interval time.Duration, failureThreshold int) *HealthChecker {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return &HealthChecker{
		key:              key,
		probe:            probe,
		interval:         interval,
		failureThreshold: failureThreshold,
		status:           Healthy,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// WithMetrics attaches a HealthMetrics sink, returning h for chaining.
// Must be called before Start.
func (h *HealthChecker) WithMetrics(m metrics.HealthMetrics) *HealthChecker {
	h.metrics = m
	return h
}

// Subscribe registers ch to receive every status-change Event.
func (h *HealthChecker) Subscribe(ch chan Event) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.subscribers = append(h.subscribers, ch)
}

func (h *HealthChecker) publish(ev Event) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Status returns the checker's current status.
func (h *HealthChecker) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Start runs the periodic probe loop in a background goroutine until
// Stop is called.
func (h *HealthChecker) Start(ctx context.Context) {
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				h.check(ctx)
			}
		}
	}()
}

// Stop halts the probe loop and waits for it to exit.
func (h *HealthChecker) Stop() {
	close(h.stop)
	<-h.done
}

func (h *HealthChecker) check(ctx context.Context) {
	err := h.probe(ctx)

	h.mu.Lock()
	old := h.status
	if err == nil {
		h.consecutiveFailures = 0
		h.status = Healthy
	} else {
		h.consecutiveFailures++
		if h.consecutiveFailures >= h.failureThreshold {
			h.status = Unhealthy
		} else {
			h.status = Degraded
		}
	}
	newStatus := h.status
	h.mu.Unlock()

	metrics.SetStatus(h.metrics, h.key.Server, newStatus.String())
	if newStatus != old {
		metrics.RecordTransition(h.metrics, h.key.Server, old.String(), newStatus.String())
		h.publish(Event{Key: h.key, Old: old, New: newStatus})
	}
}
