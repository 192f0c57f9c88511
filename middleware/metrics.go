package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aajunior43/bottelegramvideo/item"
)

// meterName is the instrumentation scope name for queue metrics.
const meterName = "github.com/aajunior43/bottelegramvideo"

// Metrics returns middleware that records per-item execution metrics
// using the global OTel MeterProvider. With no provider configured the
// instruments are noops and the middleware is a pass-through.
//
// Instruments:
//   - botqueue.item.duration (Float64Histogram): processing time in
//     seconds, with attributes: priority, status ("ok" or "error")
//   - botqueue.item.executions (Int64Counter): total attempts,
//     with attributes: priority, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter,
// for injecting a specific MeterProvider in tests.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Instruments are created once at construction; the OTel API
	// guarantees noop fallbacks on error.
	duration, dErr := meter.Float64Histogram(
		"botqueue.item.duration",
		metric.WithDescription("Duration of item processing in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr

	executions, eErr := meter.Int64Counter(
		"botqueue.item.executions",
		metric.WithDescription("Total number of item processing attempts"),
		metric.WithUnit("{execution}"),
	)
	_ = eErr

	return func(ctx context.Context, it *item.Item, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("priority", string(it.Priority)),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}
