package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aajunior43/bottelegramvideo/item"
)

// tracerName is the instrumentation scope name for queue tracing.
const tracerName = "github.com/aajunior43/bottelegramvideo"

// Tracing returns middleware that wraps item processing in an
// OpenTelemetry span. With no TracerProvider configured globally the
// noop tracer is used and the middleware has zero overhead.
//
// Span attributes: botqueue.item.id, botqueue.priority,
// botqueue.attempt, botqueue.chat_id. On error the span status is set
// to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided
// tracer, for injecting a specific TracerProvider in tests.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, it *item.Item, next Handler) error {
		ctx, span := tracer.Start(ctx, "botqueue.item.process",
			trace.WithAttributes(
				attribute.String("botqueue.item.id", it.ID.String()),
				attribute.String("botqueue.priority", string(it.Priority)),
				attribute.Int("botqueue.attempt", it.Attempts),
				attribute.Int64("botqueue.chat_id", it.ChatID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
