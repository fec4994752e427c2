package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "recipes-api"

// Span attributes set by the recipe service and the graph endpoint.
const (
	SpanAttrRecipeID   attribute.Key = "recipe.id"
	SpanAttrCandidates attribute.Key = "recipe.candidates"
	SpanAttrOutcome    attribute.Key = "recommendation.outcome"

	SpanAttrGraphQLOperationName attribute.Key = "graphql.operation.name"
	SpanAttrGraphQLOperationType attribute.Key = "graphql.operation.type"
	SpanAttrGraphQLErrors        attribute.Key = "graphql.errors"
)

// StartSpan starts an internal span from the global provider, so spans
// follow whatever EnableSpanProfiles installed. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartServiceSpan names the span "<service>.<method>", e.g. recipe.recommend.
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, attrs...)
}

// Annotate sets attrs on the span carried by ctx, if it is recording.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// RecordError attaches err as an exception event and fails the span.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
