package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/scheduler"
)

const instrumentationName = "github.com/sarchlab/tactsched/tracing"

// NewStdoutTracerProvider creates a provider that writes finished spans as
// JSON to w.
func NewStdoutTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(attribute.String("service.name", "tactsched")),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)

	return tp, nil
}

// OTelTracer records one span per task, from the moment it leaves the backlog
// until it leaves the system. Every hand-off and every rejected hand-off is a
// span event.
type OTelTracer struct {
	tracer trace.Tracer
	ctx    context.Context
	spans  map[string]trace.Span
}

// NewOTelTracer creates an OTelTracer that starts spans from the given
// provider.
func NewOTelTracer(tp trace.TracerProvider) *OTelTracer {
	return &OTelTracer{
		tracer: tp.Tracer(instrumentationName),
		ctx:    context.Background(),
		spans:  make(map[string]trace.Span),
	}
}

// Func records the event.
func (t *OTelTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case scheduler.HookPosTaskMoved:
		t.moved(ctx.Item.(scheduler.Move))
	case scheduler.HookPosCapacityExceeded:
		t.rejected(ctx.Item.(scheduler.Rejection))
	}
}

func (t *OTelTracer) moved(m scheduler.Move) {
	span, ok := t.spans[m.Task.ID]
	if !ok {
		_, span = t.tracer.Start(t.ctx, "task "+m.Task.ID,
			trace.WithAttributes(
				attribute.String("task.id", m.Task.ID),
				attribute.Int64("task.duration", int64(m.Task.Duration)),
				attribute.Int64("tact.start", int64(m.Tact)),
			))
		t.spans[m.Task.ID] = span
	}

	span.AddEvent("moved", trace.WithAttributes(
		attribute.Int64("tact", int64(m.Tact)),
		attribute.String("from", m.From),
		attribute.String("to", m.To),
	))

	if m.To == scheduler.LocationDone {
		span.SetAttributes(attribute.Int64("tact.end", int64(m.Tact)))
		span.SetStatus(codes.Ok, "")
		span.End()
		delete(t.spans, m.Task.ID)
	}
}

func (t *OTelTracer) rejected(r scheduler.Rejection) {
	span, ok := t.spans[r.Task.ID]
	if !ok {
		// Still in the backlog.
		return
	}

	span.AddEvent("capacity exceeded", trace.WithAttributes(
		attribute.Int64("tact", int64(r.Tact)),
		attribute.String("container", r.Container),
	))
}

// Open returns the number of tasks whose span has not ended.
func (t *OTelTracer) Open() int {
	return len(t.spans)
}

// Close ends the spans of tasks that never left the system.
func (t *OTelTracer) Close() {
	for id, span := range t.spans {
		span.SetStatus(codes.Error, "task did not finish")
		span.End()
		delete(t.spans, id)
	}
}
