package middleware

import (
	"context"

	domrepo "ChartSense/internal/domain/repository"
	pkgkafka "ChartSense/pkg/kafka"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ConsumerTracing opens one consumer span per handler attempt and counts
// failed attempts as "consume" errors.
func ConsumerTracing(tracer trace.Tracer, metrics domrepo.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafka.Message) (context.Context, error) {
			ctx, _ = tracer.Start(ctx, "kafka.consume",
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("messaging.destination.name", topic),
					attribute.Int("messaging.kafka.partition", km.Partition),
					attribute.Int64("messaging.kafka.offset", km.Offset),
				),
			)
			return ctx, nil
		},
		After: func(ctx context.Context, _ string, _ kafka.Message, err error) {
			span := trace.SpanFromContext(ctx)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				metrics.RecordError("consume")
			}
			span.End()
		},
	}
}
