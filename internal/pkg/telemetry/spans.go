package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/samirrijal/terramind"

// Span names.
const (
	SpanExecute  = "script.execute"
	SpanRun      = "pipeline.run"
	SpanGenerate = "llm.generate_script"
	SpanBorder   = "border.resolve"
	SpanExtract  = "llm.extract_border_query"
)

// StartSpan starts a span on the global tracer provider. Without InitTracer
// this is a no-op span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
