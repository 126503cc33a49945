// Package observability provides OpenTelemetry tracing and metrics for the
// call engine: spans around session operations and counters for utterances,
// violations, escalations, and completed calls. The engine runs fine with a
// nil Provider; every recording method is nil-safe.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string // e.g. "localhost:4317" for gRPC
	BatchTimeout   time.Duration
	Enabled        bool
	Insecure       bool
}

// DefaultConfig returns local-development defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "callcore",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		BatchTimeout:   5 * time.Second,
		Enabled:        true,
		Insecure:       true,
	}
}

// Provider manages the trace and metric providers plus the call-engine
// instruments.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	utterances     metric.Int64Counter
	violations     metric.Int64Counter
	escalations    metric.Int64Counter
	completedCalls metric.Int64Counter
	callDuration   metric.Float64Histogram
}

// New creates an observability provider. With Enabled false the provider is
// inert and exports nothing.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}

	if !config.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init metric provider: %w", err)
	}

	p.tracer = otel.Tracer("callcore",
		trace.WithInstrumentationVersion(config.ServiceVersion),
	)
	p.meter = otel.Meter("callcore",
		metric.WithInstrumentationVersion(config.ServiceVersion),
	)

	if err := p.initInstruments(); err != nil {
		return nil, fmt.Errorf("failed to init instruments: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", config.ServiceName,
		"environment", config.Environment,
		"endpoint", config.OTLPEndpoint,
	)

	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(p.config.BatchTimeout),
		),
	)
	otel.SetTracerProvider(p.tracerProvider)
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second),
		)),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initInstruments() error {
	var err error

	p.utterances, err = p.meter.Int64Counter("callcore.utterances.total",
		metric.WithDescription("Utterances processed through the DLP hot path"),
		metric.WithUnit("{utterance}"),
	)
	if err != nil {
		return err
	}

	p.violations, err = p.meter.Int64Counter("callcore.dlp.violations.total",
		metric.WithDescription("DLP violations detected"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return err
	}

	p.escalations, err = p.meter.Int64Counter("callcore.escalations.total",
		metric.WithDescription("Manager escalations raised"),
		metric.WithUnit("{escalation}"),
	)
	if err != nil {
		return err
	}

	p.completedCalls, err = p.meter.Int64Counter("callcore.calls.completed.total",
		metric.WithDescription("Calls completed and archived"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	p.callDuration, err = p.meter.Float64Histogram("callcore.call.duration",
		metric.WithDescription("Completed call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(15, 30, 60, 120, 300, 600, 1200, 1800, 3600),
	)
	return err
}

// StartSpan begins a span for a session operation. With a nil or disabled
// provider the returned span is a no-op.
func (p *Provider) StartSpan(ctx context.Context, name string, callID string) (context.Context, trace.Span) {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer("callcore").Start(ctx, name)
	}
	return p.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("call.id", callID),
	))
}

// RecordUtterance counts one processed utterance.
func (p *Provider) RecordUtterance(ctx context.Context, passed bool) {
	if p == nil || p.utterances == nil {
		return
	}
	p.utterances.Add(ctx, 1, metric.WithAttributes(attribute.Bool("dlp.passed", passed)))
}

// RecordViolation counts one DLP violation.
func (p *Provider) RecordViolation(ctx context.Context, category, severity string) {
	if p == nil || p.violations == nil {
		return
	}
	p.violations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dlp.category", category),
		attribute.String("dlp.severity", severity),
	))
}

// RecordEscalation counts one manager escalation.
func (p *Provider) RecordEscalation(ctx context.Context, reason string) {
	if p == nil || p.escalations == nil {
		return
	}
	p.escalations.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCompletion counts one completed call and its duration.
func (p *Provider) RecordCompletion(ctx context.Context, duration time.Duration, score int) {
	if p == nil || p.completedCalls == nil {
		return
	}
	p.completedCalls.Add(ctx, 1, metric.WithAttributes(attribute.Int("quality.score", score)))
	p.callDuration.Record(ctx, duration.Seconds())
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var firstErr error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
