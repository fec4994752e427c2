package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func TestStartServiceSpan(t *testing.T) {
	sr := useRecordingTracer(t)

	_, span := StartServiceSpan(context.Background(), "recipe", "recommend", SpanAttrCandidates.Int(3))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "recipe.recommend", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Contains(t, spans[0].Attributes(), SpanAttrCandidates.Int(3))
}

func TestAnnotate(t *testing.T) {
	sr := useRecordingTracer(t)

	ctx, span := StartSpan(context.Background(), "recipe.recommend")
	Annotate(ctx, SpanAttrOutcome.String("provider"))
	span.End()
	Annotate(ctx, SpanAttrOutcome.String("too late"))

	assert.Equal(t, []attribute.KeyValue{SpanAttrOutcome.String("provider")}, sr.Ended()[0].Attributes())

	assert.NotPanics(t, func() { Annotate(context.Background(), SpanAttrRecipeID.Int64(1)) })
}

func TestRecordError(t *testing.T) {
	sr := useRecordingTracer(t)

	_, span := StartSpan(context.Background(), "recipe.create")
	RecordError(span, nil)
	RecordError(span, errors.New("disk full"))
	span.End()

	got := sr.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "disk full", got.Status().Description)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "exception", got.Events()[0].Name)

	assert.NotPanics(t, func() { RecordError(nil, errors.New("x")) })
}
