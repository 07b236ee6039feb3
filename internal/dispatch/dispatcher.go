package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single provider attempt when none is configured.
const DefaultTimeout = 5 * time.Second

// maxBodyExcerpt bounds how much of a rejected response body ends up in a report.
const maxBodyExcerpt = 256

// Dispatcher delivers one event to every enabled provider concurrently and
// waits for all of them to settle.
type Dispatcher struct {
	client  HTTPDoer
	timeout time.Duration
	metrics MetricsRecorder
	tracer  trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for provider requests.
func WithHTTPClient(client HTTPDoer) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// WithMetrics overrides the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a dispatcher with the given per-attempt timeout.
func New(timeout time.Duration, opts ...Option) (*Dispatcher, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("dispatch timeout must be > 0, got %s", timeout)
	}
	d := &Dispatcher{
		client:  &http.Client{},
		timeout: timeout,
		metrics: NewMetricsRecorder(),
		tracer:  otel.Tracer("trackgate/dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Timeout returns the per-attempt timeout.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// Dispatch sends the event to every enabled provider and reports each outcome.
// It never fails: provider errors are captured in the report. Attempts are
// detached from ctx cancellation and bounded by the dispatcher timeout only.
func (d *Dispatcher) Dispatch(ctx context.Context, event *v1.TrackingEvent, providers []Provider) *Report {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "trackgate.dispatch",
		trace.WithAttributes(attribute.String("event.name", event.Event)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	enabled := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		if !p.Enabled() {
			slog.Debug("Provider not configured, skipping", "provider", p.Name())
			continue
		}
		enabled = append(enabled, p)
	}

	outcomes := make([]Outcome, len(enabled))
	var g errgroup.Group
	for i, p := range enabled {
		g.Go(func() error {
			outcomes[i] = d.attempt(ctx, p, event)
			d.metrics.RecordAttempt(ctx, outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	report := newReport(outcomes)
	d.metrics.RecordDispatch(ctx, event.Event, report, time.Since(start))

	span.SetAttributes(
		attribute.Int("dispatch.attempted", report.Attempted),
		attribute.Int("dispatch.succeeded", report.Succeeded),
		attribute.Int("dispatch.failed", len(report.Failed)),
	)
	if !report.AllSucceeded() {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d providers failed", len(report.Failed), report.Attempted))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return report
}

// attempt performs one provider delivery. Panics inside the provider are
// converted into a failed outcome.
func (d *Dispatcher) attempt(ctx context.Context, p Provider, event *v1.TrackingEvent) (out Outcome) {
	start := time.Now()
	out.Provider = p.Name()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Provider panicked during delivery", "provider", out.Provider, "panic", r)
			out = Outcome{
				Provider:    out.Provider,
				ErrorKind:   KindTransportError,
				ErrorDetail: fmt.Sprintf("provider panicked: %v", r),
			}
		}
		out.Latency = time.Since(start)
	}()

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	req, err := p.NewRequest(actx, event)
	if err != nil {
		return failed(out.Provider, KindTransportError, fmt.Sprintf("build request: %v", err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(actx.Err(), context.DeadlineExceeded) {
			return failed(out.Provider, KindTimeout, fmt.Sprintf("timed out after %s", d.timeout))
		}
		return failed(out.Provider, KindTransportError, err.Error())
	}
	defer resp.Body.Close()

	out.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		out.Succeeded = true
		return out
	}

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
	o := failed(out.Provider, KindTransportError,
		fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt))))
	o.StatusCode = resp.StatusCode
	return o
}

func failed(provider, kind, detail string) Outcome {
	return Outcome{
		Provider:    provider,
		ErrorKind:   kind,
		ErrorDetail: detail,
	}
}
