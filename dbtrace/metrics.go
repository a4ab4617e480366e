package dbtrace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments for database operations.
type metrics struct {
	// Operation latency histogram
	operationDuration metric.Float64Histogram

	// Obfuscation outcomes, by outcome
	obfuscations metric.Int64Counter
}

// newMetrics creates and registers metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	// Operation duration histogram with recommended buckets for database operations
	m.operationDuration, err = meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Duration of database client operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	m.obfuscations, err = meter.Int64Counter(
		"db.client.statement.obfuscations",
		metric.WithDescription("Number of statements run through obfuscation, by outcome"),
		metric.WithUnit("{statement}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// recordDuration records the duration of a database operation.
func (m *metrics) recordDuration(
	ctx context.Context,
	duration time.Duration,
	operation string,
	site string,
	attrs []attribute.KeyValue,
	err error,
) {
	if m == nil || m.operationDuration == nil {
		return
	}

	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+3)
	allAttrs = append(allAttrs, attrs...)

	if operation != "" {
		allAttrs = append(allAttrs, KeyOperation.String(operation))
	}
	if site != "" {
		allAttrs = append(allAttrs, attribute.String("db.call_site", site))
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	allAttrs = append(allAttrs, attribute.String("status", status))

	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(allAttrs...))
}

// recordObfuscation counts one obfuscation outcome. Unchanged outcomes
// (obfuscation disabled) are not counted.
func (m *metrics) recordObfuscation(ctx context.Context, outcome Outcome, attrs []attribute.KeyValue) {
	if m == nil || m.obfuscations == nil || outcome == OutcomeUnchanged {
		return
	}

	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs, attribute.String("outcome", outcome.String()))

	m.obfuscations.Add(ctx, 1, metric.WithAttributes(allAttrs...))
}
