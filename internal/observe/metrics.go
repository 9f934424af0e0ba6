// Package observe provides application-wide observability primitives for
// LinguaFlow: OpenTelemetry metrics and HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
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

// meterName is the instrumentation scope name used for all LinguaFlow metrics.
const meterName = "github.com/MrWong99/linguaflow"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscriptionDuration tracks speech-to-text latency per chunk.
	TranscriptionDuration metric.Float64Histogram

	// TranslationDuration tracks translation model latency per sentence.
	TranslationDuration metric.Float64Histogram

	// SummaryDuration tracks rolling-summary refresh latency.
	SummaryDuration metric.Float64Histogram

	// --- Counters ---

	// ItemsDropped counts queue evictions. Use with attribute:
	//   attribute.String("queue", ...)
	ItemsDropped metric.Int64Counter

	// ChunksGated counts audio chunks skipped by the silence gate.
	ChunksGated metric.Int64Counter

	// PartialWords counts recognized words forwarded to the display sink.
	PartialWords metric.Int64Counter

	// TranslationsEmitted counts completed translations by status.
	// Use with attribute: attribute.String("status", ...)
	TranslationsEmitted metric.Int64Counter

	// ProviderErrors counts recognizer/generator failures. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActivePipelines tracks the number of running pipelines.
	ActivePipelines metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for speech-pipeline latencies.
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
	if met.TranscriptionDuration, err = m.Float64Histogram("linguaflow.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription per chunk."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslationDuration, err = m.Float64Histogram("linguaflow.translation.duration",
		metric.WithDescription("Latency of translation per sentence."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SummaryDuration, err = m.Float64Histogram("linguaflow.summary.duration",
		metric.WithDescription("Latency of rolling-summary refreshes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ItemsDropped, err = m.Int64Counter("linguaflow.queue.dropped",
		metric.WithDescription("Total items evicted from bounded queues by queue name."),
	); err != nil {
		return nil, err
	}
	if met.ChunksGated, err = m.Int64Counter("linguaflow.transcription.gated",
		metric.WithDescription("Total audio chunks skipped by the silence gate."),
	); err != nil {
		return nil, err
	}
	if met.PartialWords, err = m.Int64Counter("linguaflow.display.partial_words",
		metric.WithDescription("Total recognized words forwarded before translation."),
	); err != nil {
		return nil, err
	}
	if met.TranslationsEmitted, err = m.Int64Counter("linguaflow.translations",
		metric.WithDescription("Total translation attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("linguaflow.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActivePipelines, err = m.Int64UpDownCounter("linguaflow.active_pipelines",
		metric.WithDescription("Number of running pipelines."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("linguaflow.http.request.duration",
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

// RecordDrop records a queue eviction for the named queue.
func (m *Metrics) RecordDrop(ctx context.Context, queue string) {
	m.ItemsDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("queue", queue)),
	)
}

// RecordTranslation records a translation attempt outcome. Status is one of
// "ok", "empty", or "error".
func (m *Metrics) RecordTranslation(ctx context.Context, status string) {
	m.TranslationsEmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordProviderError records a recognizer or generator failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
