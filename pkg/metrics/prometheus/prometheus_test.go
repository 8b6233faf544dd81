package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/module/nfsclient/pkg/metrics"
)

func TestConstructorsRegisterOnImport(t *testing.T) {
	metrics.InitRegistry()

	pm := metrics.NewPoolMetrics()
	if pm == nil {
		t.Fatal("expected a Prometheus PoolMetrics once this package is imported and metrics are enabled")
	}
	pm.RecordLeaseAcquired("s1", 10*time.Millisecond)
	pm.RecordLeaseReleased("s1")
	pm.RecordConnectionBuilt("s1")
	pm.RecordConnectionDisposed("s1", "idle_timeout")
	pm.SetOccupancy("s1", 2, 1)

	hm := metrics.NewHealthMetrics()
	if hm == nil {
		t.Fatal("expected a Prometheus HealthMetrics")
	}
	hm.RecordTransition("s1", "healthy", "degraded")
	hm.SetStatus("s1", "degraded")

	rm := metrics.NewRPCMetrics()
	if rm == nil {
		t.Fatal("expected a Prometheus RPCMetrics")
	}
	rm.ObserveCall("100003.4", 5*time.Millisecond, nil)
	rm.ObserveCall("100003.4", 5*time.Millisecond, errors.New("boom"))
}
