package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	submitted metric.Int64Counter
	rejected  metric.Int64Counter
}

func newMetrics(meter metric.Meter, s *Service) (*metrics, error) {
	submitted, err := meter.Int64Counter("tmplq.jobs.submitted",
		metric.WithDescription("Jobs accepted into the queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("create submitted counter: %w", err)
	}

	rejected, err := meter.Int64Counter("tmplq.jobs.rejected",
		metric.WithDescription("Job submissions rejected at admission"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rejected counter: %w", err)
	}

	_, err = meter.Int64ObservableGauge("tmplq.queue.depth",
		metric.WithDescription("Job ids awaiting dispatch"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(s.queue.Len()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create queue depth gauge: %w", err)
	}

	_, err = meter.Int64ObservableGauge("tmplq.history.size",
		metric.WithDescription("Entries held in the history log"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(s.history.Len()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create history size gauge: %w", err)
	}

	return &metrics{submitted: submitted, rejected: rejected}, nil
}
