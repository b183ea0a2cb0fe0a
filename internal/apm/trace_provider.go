// Package apm configures OTEL tracing exporters and wraps spans.
package apm

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/arbsim/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "stdout"
	EmptyProvider    Provider = "none"
)

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

// NewEmptyTraceProvider leaves the global no-op tracer in place.
func NewEmptyTraceProvider() TraceProvider {
	return emptyTraceProvider{}
}

type TracerOptions struct {
	serviceName string
	endpoint    string
	headers     map[string]string
}

type TracerOption func(*TracerOptions)

func WithServiceName(name string) TracerOption {
	return func(o *TracerOptions) { o.serviceName = name }
}

func WithEndpoint(endpoint string) TracerOption {
	return func(o *TracerOptions) { o.endpoint = endpoint }
}

func WithHeaders(headers map[string]string) TracerOption {
	return func(o *TracerOptions) { o.headers = headers }
}

func newExporter(ctx context.Context, provider Provider, o *TracerOptions) (sdktrace.SpanExporter, error) {
	switch provider {
	case ZipkinProvider:
		return zipkin.New(o.endpoint)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(o.endpoint),
			otlptracegrpc.WithHeaders(o.headers),
		)
	case OTLPHTTPProvider:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(o.endpoint),
			otlptracehttp.WithHeaders(o.headers),
		)
	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return nil, fmt.Errorf("unknown trace provider %q", provider)
}

// NewTraceProvider installs a global tracer provider exporting to provider.
// EmptyProvider keeps the no-op tracer.
func NewTraceProvider(log logger.LoggerInterface, provider Provider, options ...TracerOption) (TraceProvider, error) {
	ctx := context.Background()

	opts := &TracerOptions{serviceName: os.Getenv("OTEL_SERVICE_NAME")}
	for _, opt := range options {
		opt(opts)
	}

	if provider == EmptyProvider || provider == "" {
		return NewEmptyTraceProvider(), nil
	}

	exp, err := newExporter(ctx, provider, opts)
	if err != nil {
		return nil, err
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.serviceName),
			attribute.String("otel.provider", string(provider)),
		))
	if err != nil {
		log.Warn(ctx, "trace resource merge failed, using default resource", "error", err)
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(ctx, "tracing initialized", "provider", provider, "endpoint", opts.endpoint)

	return &traceProvider{tp}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
