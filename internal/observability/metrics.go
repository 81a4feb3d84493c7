// Package observability provides OpenTelemetry metrics (Prometheus exporter) and optional tracing.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/evaldeck/console/internal/observability"
	defaultServiceName = "evaldeck-console"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for request duration histograms.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}

// ConsoleMetrics is the single metrics interface for the console (HTTP, poller, fixtures).
type ConsoleMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordPollCycle(ctx context.Context, outcome string)
	RecordFixtureServed(ctx context.Context, kind string)
	RecordRequestBodyTooLarge(ctx context.Context)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: evaldeck-console).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with Prometheus exporter and returns the provider,
// an HTTP handler for /metrics, and ConsoleMetrics that use the provider's Meter.
// Caller must call provider.Shutdown on exit. When metrics are disabled, pass nil for metrics at call sites.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (provider MeterProviderShutdown, metricsHandler http.Handler, metrics ConsoleMetrics, cacheMetrics CacheMetrics, err error) {
	serviceNameVal := cfg.ServiceName
	if serviceNameVal == "" {
		serviceNameVal = defaultServiceName
	}

	// Single resource to avoid Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceNameVal),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(
			sdkmetric.NewView(
				sdkmetric.Instrument{Name: "http.server.duration"},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}},
			),
		),
	)
	provider = mp
	meter := mp.Meter(meterScope)

	metrics, err = newMetricsFromMeter(meter)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create metrics instruments: %w", err)
	}

	cacheMetrics, err = NewCacheMetrics(meter)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create cache metrics: %w", err)
	}

	metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return provider, metricsHandler, metrics, cacheMetrics, nil
}

// NewConsoleMetrics creates the console's metric instruments on the given
// meter. Used by push-based exporters where the provider is built elsewhere.
func NewConsoleMetrics(meter metric.Meter) (ConsoleMetrics, error) {
	return newMetricsFromMeter(meter)
}

func newMetricsFromMeter(meter metric.Meter) (*consoleMetricsImpl, error) {
	requestCount, err := meter.Int64Counter(
		"http.server.request_count",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("request_count: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("http.server.duration: %w", err)
	}

	pollCycles, err := meter.Int64Counter(
		"console_poll_cycles_total",
		metric.WithDescription("Job list poll cycles by outcome (success, failure)"),
	)
	if err != nil {
		return nil, fmt.Errorf("console_poll_cycles_total: %w", err)
	}

	fixturesServed, err := meter.Int64Counter(
		"console_fixtures_served_total",
		metric.WithDescription("Mock fixture payloads served by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("console_fixtures_served_total: %w", err)
	}

	bodyTooLarge, err := meter.Int64Counter(
		"console_request_body_too_large_total",
		metric.WithDescription("Requests rejected for exceeding the body size limit"),
	)
	if err != nil {
		return nil, fmt.Errorf("console_request_body_too_large_total: %w", err)
	}

	return &consoleMetricsImpl{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		pollCycles:      pollCycles,
		fixturesServed:  fixturesServed,
		bodyTooLarge:    bodyTooLarge,
	}, nil
}

type consoleMetricsImpl struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	pollCycles      metric.Int64Counter
	fixturesServed  metric.Int64Counter
	bodyTooLarge    metric.Int64Counter
}

func (m *consoleMetricsImpl) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	)
	m.requestCount.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

func (m *consoleMetricsImpl) RecordPollCycle(ctx context.Context, outcome string) {
	outcome = normalizePollOutcome(outcome)
	m.pollCycles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *consoleMetricsImpl) RecordFixtureServed(ctx context.Context, kind string) {
	kind = normalizeFixtureKind(kind)
	m.fixturesServed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *consoleMetricsImpl) RecordRequestBodyTooLarge(ctx context.Context) {
	m.bodyTooLarge.Add(ctx, 1)
}

// normalizePollOutcome maps poll outcome to a bounded set for cardinality control.
func normalizePollOutcome(s string) string {
	switch s {
	case "success", "failure":
		return s
	default:
		return "unknown"
	}
}

// normalizeFixtureKind maps fixture kind to a bounded set.
func normalizeFixtureKind(s string) string {
	switch s {
	case "evaluation", "evaluation_list", "assistant":
		return s
	default:
		return "unknown"
	}
}
