package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	ServiceName    string
	JaegerEndpoint string
	// Registerer defaults to the global Prometheus registry.
	Registerer promclient.Registerer
}

// Observability owns the OpenTelemetry meter and tracer providers.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	requests       otelmetric.Int64Counter
	requestLatency otelmetric.Float64Histogram
}

func New(cfg Config) (*Observability, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "askora"
	}
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	promOpts := []prometheus.Option{}
	if cfg.Registerer != nil {
		promOpts = append(promOpts, prometheus.WithRegisterer(cfg.Registerer))
	}
	exporter, err := prometheus.New(promOpts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	meterProvider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(meterProvider)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.JaegerEndpoint != "" {
		jaegerExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(jaegerExporter))
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tracerProvider)

	meter := meterProvider.Meter(cfg.ServiceName)
	requests, _ := meter.Int64Counter(
		"askora.requests",
		otelmetric.WithDescription("Questions answered"),
	)
	requestLatency, _ := meter.Float64Histogram(
		"askora.request.duration",
		otelmetric.WithDescription("End-to-end answer latency"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(cfg.ServiceName),
		requests:       requests,
		requestLatency: requestLatency,
	}, nil
}

// StartSpan opens a span on the service tracer, or a no-op span when o is nil.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name)
}

func (o *Observability) RecordRequest(ctx context.Context, entrypoint, note string, duration time.Duration) {
	if o == nil || o.requests == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("entrypoint", entrypoint),
		attribute.String("path", notePath(note)),
	)
	o.requests.Add(ctx, 1, attrs)
	o.requestLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// notePath keeps metric cardinality bounded by dropping the detail after ':'.
func notePath(note string) string {
	for i := 0; i < len(note); i++ {
		if note[i] == ':' {
			return note[:i]
		}
	}
	if note == "" {
		return "unknown"
	}
	return note
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	var firstErr error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
