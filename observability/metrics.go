// Package observability exports queue lifecycle counts as OpenTelemetry
// metrics. It piggybacks on the event bus rather than hooking the
// manager directly, so it can be attached and detached at runtime like
// any other listener.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aajunior43/bottelegramvideo/event"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/aajunior43/bottelegramvideo/observability"

// EventMetrics counts queue lifecycle events per kind and priority.
//
// Instrument:
//   - botqueue.lifecycle.events (Int64Counter), with attributes:
//     kind, priority
type EventMetrics struct {
	events metric.Int64Counter
}

// NewEventMetrics creates the metrics listener using the global OTel
// MeterProvider. Without a configured provider the counter is a noop.
func NewEventMetrics() *EventMetrics {
	return NewEventMetricsWithMeter(otel.Meter(meterName))
}

// NewEventMetricsWithMeter creates the listener with an explicit meter,
// for injecting a specific MeterProvider in tests.
func NewEventMetricsWithMeter(meter metric.Meter) *EventMetrics {
	events, err := meter.Int64Counter(
		"botqueue.lifecycle.events",
		metric.WithDescription("Queue item lifecycle events"),
		metric.WithUnit("{event}"),
	)
	_ = err // noop fallback guaranteed by the OTel API contract

	return &EventMetrics{events: events}
}

// Listen returns the event.Listener to subscribe on the bus.
func (m *EventMetrics) Listen() event.Listener {
	return func(ev event.Event) {
		m.events.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("kind", string(ev.Kind)),
			attribute.String("priority", string(ev.Priority)),
		))
	}
}
