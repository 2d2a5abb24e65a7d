// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/linguabridge/linguabridge"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech recognition latency.
	STTDuration metric.Float64Histogram

	// TranslateDuration tracks translation latency.
	TranslateDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end latency from audio receipt to reply
	// dispatch.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// FramesReceived counts decoded inbound frames. Use with attributes:
	//   attribute.String("encoding", ...), attribute.String("kind", ...)
	FramesReceived metric.Int64Counter

	// DecodeErrors counts frames rejected by the codec. Use with attribute:
	//   attribute.String("reason", ...)
	DecodeErrors metric.Int64Counter

	// EngineRequests counts engine calls. Use with attributes:
	//   attribute.String("engine", ...), attribute.String("kind", ...), attribute.String("status", ...)
	EngineRequests metric.Int64Counter

	// RepliesSent counts outbound Result and Error frames. Use with attribute:
	//   attribute.String("kind", ...)
	RepliesSent metric.Int64Counter

	// --- Error counters ---

	// EngineErrors counts engine failures. Use with attributes:
	//   attribute.String("engine", ...), attribute.String("kind", ...)
	EngineErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live channel sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("linguabridge.stt.duration",
		metric.WithDescription("Latency of speech recognition."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("linguabridge.translate.duration",
		metric.WithDescription("Latency of translation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("linguabridge.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("linguabridge.pipeline.duration",
		metric.WithDescription("End-to-end latency from audio receipt to reply dispatch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesReceived, err = m.Int64Counter("linguabridge.frames.received",
		metric.WithDescription("Total decoded inbound frames by encoding and kind."),
	); err != nil {
		return nil, err
	}
	if met.DecodeErrors, err = m.Int64Counter("linguabridge.frames.decode_errors",
		metric.WithDescription("Total frames rejected by the codec, by reason."),
	); err != nil {
		return nil, err
	}
	if met.EngineRequests, err = m.Int64Counter("linguabridge.engine.requests",
		metric.WithDescription("Total engine calls by engine, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.RepliesSent, err = m.Int64Counter("linguabridge.replies.sent",
		metric.WithDescription("Total outbound Result and Error frames by kind."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.EngineErrors, err = m.Int64Counter("linguabridge.engine.errors",
		metric.WithDescription("Total engine failures by engine and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("linguabridge.active_sessions",
		metric.WithDescription("Number of live channel sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("linguabridge.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordFrame records an inbound frame counter increment with the standard
// attribute set.
func (m *Metrics) RecordFrame(ctx context.Context, encoding, kind string) {
	m.FramesReceived.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("encoding", encoding),
			attribute.String("kind", kind),
		),
	)
}

// RecordDecodeError records a codec rejection counter increment.
func (m *Metrics) RecordDecodeError(ctx context.Context, reason string) {
	m.DecodeErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordEngineRequest records an engine request counter increment with the
// standard attribute set.
func (m *Metrics) RecordEngineRequest(ctx context.Context, engine, kind, status string) {
	m.EngineRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("engine", engine),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordEngineError records an engine failure counter increment.
func (m *Metrics) RecordEngineError(ctx context.Context, engine, kind string) {
	m.EngineErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("engine", engine),
			attribute.String("kind", kind),
		),
	)
}

// RecordReply records an outbound reply counter increment.
func (m *Metrics) RecordReply(ctx context.Context, kind string) {
	m.RepliesSent.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
