package worker

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	inflight  metric.Int64UpDownCounter
	completed metric.Int64Counter
	duration  metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	inflight, err := meter.Int64UpDownCounter("tmplq.jobs.processing",
		metric.WithDescription("Jobs currently processing"),
	)
	if err != nil {
		return nil, fmt.Errorf("create processing counter: %w", err)
	}

	completed, err := meter.Int64Counter("tmplq.jobs.completed",
		metric.WithDescription("Jobs that reached a terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("create completed counter: %w", err)
	}

	duration, err := meter.Float64Histogram("tmplq.jobs.duration",
		metric.WithDescription("Time spent processing successful jobs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &metrics{inflight: inflight, completed: completed, duration: duration}, nil
}
