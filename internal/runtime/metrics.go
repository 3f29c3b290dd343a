package runtime

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded by the agent loop, the model
// gateway and the retrieval tool. A nil *Metrics records nothing.
type Metrics struct {
	sessions       otelmetric.Int64Counter
	iterations     otelmetric.Int64Histogram
	gatewayCalls   otelmetric.Int64Counter
	gatewayLatency otelmetric.Float64Histogram
	retrievals     otelmetric.Int64Counter
	fetchLatency   otelmetric.Float64Histogram
}

// NewMetrics registers the scout instruments on meter.
func NewMetrics(meter otelmetric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.sessions, err = meter.Int64Counter(
		"scout_sessions_total",
		otelmetric.WithDescription("Finished answer sessions by outcome"),
	); err != nil {
		return nil, err
	}
	if m.iterations, err = meter.Int64Histogram(
		"scout_session_iterations",
		otelmetric.WithDescription("Iterations used per session"),
	); err != nil {
		return nil, err
	}
	if m.gatewayCalls, err = meter.Int64Counter(
		"scout_gateway_calls_total",
		otelmetric.WithDescription("Model gateway calls by stage and status"),
	); err != nil {
		return nil, err
	}
	if m.gatewayLatency, err = meter.Float64Histogram(
		"scout_gateway_latency_seconds",
		otelmetric.WithDescription("Model gateway round trip latency"),
		otelmetric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.retrievals, err = meter.Int64Counter(
		"scout_retrieval_attempts_total",
		otelmetric.WithDescription("Page retrieval attempts by result"),
	); err != nil {
		return nil, err
	}
	if m.fetchLatency, err = meter.Float64Histogram(
		"scout_fetch_latency_seconds",
		otelmetric.WithDescription("Page fetch latency"),
		otelmetric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// SessionFinished records a completed session.
func (m *Metrics) SessionFinished(ctx context.Context, outcome string, iterations int) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
	m.iterations.Record(ctx, int64(iterations))
}

// GatewayCall records a single model call.
func (m *Metrics) GatewayCall(ctx context.Context, stage, status string, took time.Duration) {
	if m == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("stage", stage), attribute.String("status", status))
	m.gatewayCalls.Add(ctx, 1, attrs)
	m.gatewayLatency.Record(ctx, took.Seconds(), otelmetric.WithAttributes(attribute.String("stage", stage)))
}

// RetrievalAttempt counts one page-selection-and-fetch attempt.
func (m *Metrics) RetrievalAttempt(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.retrievals.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("result", result)))
}

// ObserveFetch records fetch latency for the named fetcher.
func (m *Metrics) ObserveFetch(ctx context.Context, fetcher string, took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetchLatency.Record(ctx, took.Seconds(), otelmetric.WithAttributes(
		attribute.String("fetcher", fetcher),
		attribute.String("status", status),
	))
}
