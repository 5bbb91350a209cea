// Package observe provides application-wide observability primitives for
// the narrator server: OpenTelemetry metrics, a Prometheus exporter bridge,
// and HTTP middleware that records request durations.
//
// Metrics are recorded through the OpenTelemetry Metrics API and scraped via
// the standard /metrics endpoint through the Prometheus bridge set up by
// [InitProvider]. Tests should use [Discard] to avoid cross-test pollution
// and exporter setup.
package observe

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all narrator metrics.
const meterName = "github.com/quillcast/narrator"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SynthesisDuration tracks per-segment TTS synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// AnalysisDuration tracks scene-breakdown latency.
	AnalysisDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts remote provider calls. Use with attributes:
	//   attribute.String("kind", "tts"|"scene"), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider failures. Use with attribute:
	//   attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// CacheHits counts synthesis cache hits.
	CacheHits metric.Int64Counter

	// CacheMisses counts synthesis cache misses.
	CacheMisses metric.Int64Counter

	// SegmentsPlayed counts segments that began playback.
	SegmentsPlayed metric.Int64Counter

	// SegmentsSkipped counts segments dropped by the failure-skip policy.
	SegmentsSkipped metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live narration sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// synthesis round-trips and local HTTP handling.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("narrator.synthesis.duration",
		metric.WithDescription("Latency of per-segment speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("narrator.analysis.duration",
		metric.WithDescription("Latency of scene breakdown."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("narrator.http.request.duration",
		metric.WithDescription("Latency of HTTP request handling."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("narrator.provider.requests",
		metric.WithDescription("Remote provider calls by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("narrator.provider.errors",
		metric.WithDescription("Remote provider failures by kind."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("narrator.cache.hits",
		metric.WithDescription("Synthesis cache hits."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("narrator.cache.misses",
		metric.WithDescription("Synthesis cache misses."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsPlayed, err = m.Int64Counter("narrator.segments.played",
		metric.WithDescription("Segments that began playback."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsSkipped, err = m.Int64Counter("narrator.segments.skipped",
		metric.WithDescription("Segments dropped by the failure-skip policy."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("narrator.sessions.active",
		metric.WithDescription("Live narration sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Discard returns a Metrics instance whose instruments record nothing.
// Intended for tests and for components constructed before the real meter
// provider exists.
func Discard() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		// The noop provider never fails to create instruments.
		panic(err)
	}
	return m
}
