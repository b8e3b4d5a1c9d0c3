package snapbuild

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelReporter records a provisioning run as a span with one child span per step
type OTelReporter struct {
	tracer    trace.Tracer
	parentCtx context.Context

	mu        sync.Mutex
	rootCtx   context.Context
	rootSpan  trace.Span
	stepSpans map[string]trace.Span
}

// NewOTelReporter creates a reporter whose spans are children of the span in parentCtx, if any
func NewOTelReporter(tracer trace.Tracer, parentCtx context.Context) *OTelReporter {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return &OTelReporter{
		tracer:    tracer,
		parentCtx: parentCtx,
		stepSpans: make(map[string]trace.Span),
	}
}

// ProvisionStarted implements Reporter
func (r *OTelReporter) ProvisionStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rootCtx, r.rootSpan = r.tracer.Start(r.parentCtx, "snapbuild.provision")
}

// ProvisionFinished implements Reporter
func (r *OTelReporter) ProvisionFinished(report *ProvisionReport, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rootSpan == nil {
		return
	}
	if report != nil {
		r.rootSpan.SetAttributes(
			attribute.Int("snapbuild.steps", len(report.Steps)),
			attribute.StringSlice("snapbuild.conflicting_packages", report.ConflictingPackages),
		)
	}
	if err != nil {
		r.rootSpan.RecordError(err)
		r.rootSpan.SetStatus(codes.Error, err.Error())
	} else {
		r.rootSpan.SetStatus(codes.Ok, "")
	}
	r.rootSpan.End()
	r.rootSpan = nil
}

// StepStarted implements Reporter
func (r *OTelReporter) StepStarted(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx := r.rootCtx
	if ctx == nil {
		ctx = r.parentCtx
	}
	_, span := r.tracer.Start(ctx, "snapbuild.step", trace.WithAttributes(attribute.String("snapbuild.step", step)))
	r.stepSpans[step] = span
}

// StepLog implements Reporter
func (r *OTelReporter) StepLog(step string, buf []byte) {}

// StepFinished implements Reporter
func (r *OTelReporter) StepFinished(res StepResult) {
	r.mu.Lock()
	span, ok := r.stepSpans[res.Step]
	delete(r.stepSpans, res.Step)
	r.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(attribute.String("snapbuild.status", res.Status.String()))
	switch res.Status {
	case StepRecovered:
		span.AddEvent("recovered", trace.WithAttributes(attribute.String("error", res.Err.Error())))
		span.SetStatus(codes.Ok, "")
	case StepFailed:
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
