package middleware

import (
	"context"
	"errors"
	"testing"

	"ChartSense/pkg/metrics"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConsumerTracingRecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	hook := ConsumerTracing(tp.Tracer("test"), metrics.Nop{})

	km := kafka.Message{Partition: 2, Offset: 41}
	ctx, err := hook.BeforeHandle(context.Background(), "chartsense.frames", km)
	if err != nil {
		t.Fatalf("BeforeHandle: %v", err)
	}
	hook.AfterHandle(ctx, "chartsense.frames", km, nil)

	ctx, _ = hook.BeforeHandle(context.Background(), "chartsense.tiers", km)
	hook.AfterHandle(ctx, "chartsense.tiers", km, errors.New("bad tier"))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Name() != "kafka.consume" || spans[0].Status().Code == codes.Error {
		t.Fatalf("unexpected first span %q status %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatalf("failed attempt must mark the span as error")
	}
}
