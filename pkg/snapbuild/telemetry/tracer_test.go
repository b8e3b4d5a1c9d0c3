package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestContextFromTraceParent(t *testing.T) {
	tests := []struct {
		name        string
		traceparent string
		wantErr     bool
		wantValid   bool
	}{
		{
			name:        "valid traceparent",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantValid:   true,
		},
		{
			name:        "empty traceparent",
			traceparent: "",
		},
		{
			name:        "invalid traceparent",
			traceparent: "invalid",
			wantErr:     true,
		},
		{
			name:        "all zero trace id",
			traceparent: "00-00000000000000000000000000000000-00f067aa0ba902b7-01",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := ContextFromTraceParent(context.Background(), tt.traceparent)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ContextFromTraceParent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if valid := trace.SpanContextFromContext(ctx).IsValid(); valid != tt.wantValid {
				t.Errorf("span context valid = %v, want %v", valid, tt.wantValid)
			}
		})
	}
}

func TestInitializeWithoutEndpoint(t *testing.T) {
	if err := Initialize(context.Background(), "", "test", false); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if Enabled() {
		t.Errorf("tracing must stay disabled without an endpoint")
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestFinishSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	func() (err error) {
		_, span := StartSpan(context.Background(), "ok")
		defer FinishSpan(span, &err)
		return nil
	}()
	func() (err error) {
		_, span := StartSpan(context.Background(), "failing")
		defer FinishSpan(span, &err)
		return errors.New("boom")
	}()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("ok span status = %v", spans[0].Status.Code)
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("failing span status = %v", spans[1].Status.Code)
	}
}
