package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry manages the OTLP trace provider and its shutdown.
//
// Exporter failures do not crash the daemon; the instance degrades to
// a no-op tracer and records why.
type Telemetry struct {
	config *Config

	tracerProvider *trace.TracerProvider

	degraded    atomic.Bool
	degradedMu  sync.Mutex
	degradedMsg string
}

// New creates a Telemetry instance and initializes the trace provider.
//
// With telemetry disabled in config this returns a no-op instance.
// Provider initialization errors degrade the instance instead of
// failing startup.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}

	if !cfg.Enabled {
		return t, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		t.setDegraded(fmt.Sprintf("resource creation failed: %v", err))
		return t, nil
	}

	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		t.setDegraded(fmt.Sprintf("tracer provider failed: %v", err))
		return t, nil
	}

	t.tracerProvider = tp
	otel.SetTracerProvider(tp)

	// W3C Trace Context propagation
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return t, nil
}

// Tracer returns a tracer for the given instrumentation scope, or a
// no-op tracer when telemetry is disabled or degraded.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// Degraded reports whether the provider failed to initialize, and why.
func (t *Telemetry) Degraded() (bool, string) {
	if !t.degraded.Load() {
		return false, ""
	}
	t.degradedMu.Lock()
	defer t.degradedMu.Unlock()
	return true, t.degradedMsg
}

func (t *Telemetry) setDegraded(msg string) {
	t.degradedMu.Lock()
	t.degradedMsg = msg
	t.degradedMu.Unlock()
	t.degraded.Store(true)
}

// Shutdown flushes pending spans and stops the provider. Bounded by
// the configured shutdown timeout.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.tracerProvider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, t.config.ShutdownTimeout)
	defer cancel()

	if err := t.tracerProvider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down tracer provider: %w", err)
	}
	return nil
}
