package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

const tracerName = "github.com/gitpod-io/snapbuild"

var (
	tracerProvider *sdktrace.TracerProvider

	propagator = propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
)

// Initialize sets up an OTLP/HTTP trace exporter. An empty endpoint leaves tracing disabled.
// Calling Initialize again after a successful call is a no-op.
func Initialize(ctx context.Context, endpoint, version string, insecure bool) error {
	if endpoint == "" || tracerProvider != nil {
		return nil
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return xerrors.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("snapbuild"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return xerrors.Errorf("failed to create resource: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagator)
	return nil
}

// Shutdown flushes pending spans
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := tracerProvider.Shutdown(ctx)
	tracerProvider = nil
	return err
}

// Enabled returns true if tracing has been initialized
func Enabled() bool {
	return tracerProvider != nil
}

// Tracer returns the snapbuild tracer of the global provider
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(tracerName)
}

// StartSpan creates a new span with the given name and attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// FinishSpan ends a span and sets its status based on the error.
// Usage: defer telemetry.FinishSpan(span, &err)
func FinishSpan(span trace.Span, err *error) {
	if span == nil {
		return
	}
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ContextFromTraceParent returns a context carrying the remote span described by a W3C traceparent
// header, so that our spans join an existing trace.
func ContextFromTraceParent(ctx context.Context, traceparent string) (context.Context, error) {
	if traceparent == "" {
		return ctx, nil
	}

	res := propagator.Extract(ctx, propagation.MapCarrier{"traceparent": traceparent})
	if !trace.SpanContextFromContext(res).IsValid() {
		return ctx, xerrors.Errorf("invalid traceparent: %s", traceparent)
	}
	return res, nil
}
