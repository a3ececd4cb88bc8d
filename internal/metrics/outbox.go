package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OutboxMetrics defines the interface for recording outbox dispatch metrics.
type OutboxMetrics interface {
	// RecordDispatch records the outcome of processing one envelope.
	// Status examples: "published", "failed", "tenant_mismatch".
	RecordDispatch(ctx context.Context, eventType, status string)

	// RecordProcessingDuration records how long one envelope took to process,
	// from claim to the final mark operation.
	RecordProcessingDuration(ctx context.Context, eventType string, duration time.Duration)
}

// outboxMetrics implements OutboxMetrics using OpenTelemetry metrics.
type outboxMetrics struct {
	dispatchCounter metric.Int64Counter
	durationHisto   metric.Float64Histogram
}

// NewOutboxMetrics creates a new OutboxMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "classhub").
func NewOutboxMetrics(meterProvider metric.MeterProvider, namespace string) (OutboxMetrics, error) {
	meter := meterProvider.Meter(namespace)

	dispatchCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_dispatched_total", namespace),
		metric.WithDescription("Total number of outbox envelopes processed"),
		metric.WithUnit("{envelope}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_outbox_processing_duration_seconds", namespace),
		metric.WithDescription("Duration of outbox envelope processing in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing duration histogram: %w", err)
	}

	return &outboxMetrics{
		dispatchCounter: dispatchCounter,
		durationHisto:   durationHisto,
	}, nil
}

// RecordDispatch increments the dispatch counter with event type and status labels.
func (m *outboxMetrics) RecordDispatch(ctx context.Context, eventType, status string) {
	m.dispatchCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("event_type", eventType),
			attribute.String("status", status),
		),
	)
}

// RecordProcessingDuration records the processing duration in seconds with an event type label.
func (m *outboxMetrics) RecordProcessingDuration(ctx context.Context, eventType string, duration time.Duration) {
	m.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("event_type", eventType),
		),
	)
}
