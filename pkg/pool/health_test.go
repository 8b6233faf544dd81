package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHealthCheckerStaysHealthyOnSuccess(t *testing.T) {
	h := NewHealthChecker(Key{Server: "s1"}, func(ctx context.Context) error { return nil }, time.Hour, 3)
	h.check(context.Background())
	if h.Status() != Healthy {
		t.Fatalf("expected Healthy, got %s", h.Status())
	}
}

func TestHealthCheckerDegradesAfterOneFailure(t *testing.T) {
	boom := errors.New("boom")
	h := NewHealthChecker(Key{Server: "s1"}, func(ctx context.Context) error { return boom }, time.Hour, 3)
	h.check(context.Background())
	if h.Status() != Degraded {
		t.Fatalf("expected Degraded after one failure, got %s", h.Status())
	}
}

func TestHealthCheckerGoesUnhealthyAtThreshold(t *testing.T) {
	boom := errors.New("boom")
	h := NewHealthChecker(Key{Server: "s1"}, func(ctx context.Context) error { return boom }, time.Hour, 2)
	h.check(context.Background())
	h.check(context.Background())
	if h.Status() != Unhealthy {
		t.Fatalf("expected Unhealthy at threshold, got %s", h.Status())
	}
}

func TestHealthCheckerRecoversOnSuccess(t *testing.T) {
	calls := 0
	h := NewHealthChecker(Key{Server: "s1"}, func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("boom")
		}
		return nil
	}, time.Hour, 2)

	h.check(context.Background())
	h.check(context.Background())
	if h.Status() != Unhealthy {
		t.Fatalf("expected Unhealthy before recovery, got %s", h.Status())
	}
	h.check(context.Background())
	if h.Status() != Healthy {
		t.Fatalf("expected Healthy after a success, got %s", h.Status())
	}
}

func TestHealthCheckerPublishesOnTransition(t *testing.T) {
	boom := errors.New("boom")
	h := NewHealthChecker(Key{Server: "s1"}, func(ctx context.Context) error { return boom }, time.Hour, 3)
	events := make(chan Event, 4)
	h.Subscribe(events)

	h.check(context.Background())

	select {
	case ev := <-events:
		if ev.Old != Healthy || ev.New != Degraded {
			t.Fatalf("unexpected transition: %+v", ev)
		}
	default:
		t.Fatalf("expected a transition event to be published")
	}
}

func TestHealthCheckerStartStop(t *testing.T) {
	h := NewHealthChecker(Key{Server: "s1"}, func(ctx context.Context) error { return nil }, time.Millisecond, 3)
	h.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	h.Stop()
}
