// Package telemetry provides a package-level OpenTelemetry tracer for this
// client's RPC round trips and façade operations. With telemetry disabled
// (the default), every call is a no-op: StartSpan returns an already-ended,
// non-recording span and costs essentially nothing.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls whether and how spans are recorded.
type Config struct {
	// Enabled turns on span recording. Default: false (no-op tracer).
	Enabled bool

	// ServiceName names the tracer, attached to every span it emits.
	// Default: "nfsclient".
	ServiceName string

	// SampleRate is the fraction of traces recorded, in (0,1]. Zero takes
	// the default; a negative value records no traces. Default: 1.0.
	SampleRate float64
}

var (
	tracer         trace.Tracer
	tracerOnce     sync.Once
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
)

// Init installs the package-level tracer per cfg. Returns a shutdown
// function that flushes and releases SDK resources; safe to call even
// when telemetry is disabled. No span exporter is wired in by default —
// this client has no OTLP endpoint to send to — so an enabled tracer
// still records spans but they are discarded at Shutdown rather than
// exported. The *sdktrace.TracerProvider is not exposed by this package,
// so attaching an exporter takes a change to Init itself.
func Init(cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		enabled = false
		tracer = noop.NewTracerProvider().Tracer(serviceName(cfg))
		return func(context.Context) error { return nil }, nil
	}

	enabled = true

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate > 0 && cfg.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	} else if cfg.SampleRate < 0 {
		sampler = sdktrace.NeverSample()
	}

	tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))
	otel.SetTracerProvider(tracerProvider)
	tracer = tracerProvider.Tracer(serviceName(cfg))

	shutdown = func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tracerProvider.Shutdown(shutdownCtx)
	}
	return shutdown, nil
}

func serviceName(cfg Config) string {
	if cfg.ServiceName == "" {
		return "nfsclient"
	}
	return cfg.ServiceName
}

// Tracer returns the package-level tracer, defaulting to a no-op tracer
// if Init was never called.
func Tracer() trace.Tracer {
	tracerOnce.Do(func() {
		if tracer == nil {
			tracer = noop.NewTracerProvider().Tracer("nfsclient")
		}
	})
	return tracer
}

// IsEnabled reports whether Init was called with Config.Enabled true.
func IsEnabled() bool {
	return enabled
}

// StartSpan starts a span named name as a child of any span already in
// ctx. The caller must End() the returned span (End is cheap and safe on
// a no-op span).
func StartSpan(ctx context.Context, name string, attrs ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, attrs...)
}

// RecordError records err on the span in ctx and marks the span's status
// Error. A nil err is a no-op, so callers can unconditionally defer it
// with a named return.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
