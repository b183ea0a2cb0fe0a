package apm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fd1az/arbsim/internal/logger"
)

func TestNewTraceProvider_EmptyAndUnknown(t *testing.T) {
	tp, err := NewTraceProvider(logger.NewNop(), EmptyProvider)
	require.NoError(t, err)
	assert.NoError(t, tp.Stop())

	_, err = NewTraceProvider(logger.NewNop(), Provider("jaeger"))
	assert.Error(t, err)
}

func TestTracer_NoticeError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tracer := NewTracer("apm-test")
	ctx, span := tracer.StartSpanFromContext(context.Background(), "op")
	assert.True(t, span.IsRecording())
	assert.Equal(t, span.SpanContext().TraceID(), tracer.SpanFromContext(ctx).SpanContext().TraceID())

	span.NoticeError(errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "op", ended[0].Name())
	assert.Equal(t, "boom", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}
