package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records dispatch metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordAttempt records one provider attempt.
	RecordAttempt(ctx context.Context, outcome Outcome)

	// RecordDispatch records a completed fan-out.
	RecordDispatch(ctx context.Context, event string, report *Report, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	attempts        metric.Int64Counter
	failures        metric.Int64Counter
	attemptLatency  metric.Float64Histogram
	dispatches      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("trackgate/dispatch")

	attempts, err := meter.Int64Counter("trackgate.provider.attempts",
		metric.WithDescription("Number of provider delivery attempts"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("trackgate.provider.failures",
		metric.WithDescription("Number of failed provider delivery attempts"),
	)
	if err != nil {
		return nil, err
	}

	attemptLatency, err := meter.Float64Histogram("trackgate.provider.latency_ms",
		metric.WithDescription("Provider delivery latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter("trackgate.dispatch.runs",
		metric.WithDescription("Number of fan-out dispatches"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("trackgate.dispatch.latency_ms",
		metric.WithDescription("Fan-out latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		attempts:        attempts,
		failures:        failures,
		attemptLatency:  attemptLatency,
		dispatches:      dispatches,
		dispatchLatency: dispatchLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel meter
// provider, or a no-op recorder if the instruments cannot be created.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("Dispatch metrics initialization failed, using no-op recorder", "error", err)
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordAttempt(ctx context.Context, outcome Outcome) {
	attrs := metric.WithAttributes(
		attribute.String("provider", outcome.Provider),
		attribute.Bool("success", outcome.Succeeded),
	)
	m.attempts.Add(ctx, 1, attrs)
	m.attemptLatency.Record(ctx, float64(outcome.Latency.Milliseconds()), attrs)

	if !outcome.Succeeded {
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", outcome.Provider),
			attribute.String("kind", outcome.ErrorKind),
		))
	}
}

func (m *otelMetrics) RecordDispatch(ctx context.Context, event string, report *Report, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("event", event),
		attribute.Bool("all_succeeded", report.AllSucceeded()),
	)
	m.dispatches.Add(ctx, 1, attrs)
	m.dispatchLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// NoopMetrics discards all metrics.
type NoopMetrics struct{}

func (NoopMetrics) RecordAttempt(context.Context, Outcome) {}

func (NoopMetrics) RecordDispatch(context.Context, string, *Report, time.Duration) {}
