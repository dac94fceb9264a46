package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"tmplq/internal/apperr"
	"tmplq/internal/logger"
	"tmplq/internal/store"
)

// SubmitJob enqueues a render of templateID with params. Absent params are
// treated as an empty object; anything other than an object is rejected. The
// params are deep-copied, so later changes by the caller do not reach the job.
func (s *Service) SubmitJob(ctx context.Context, templateID string, params any) (int64, error) {
	log := logger.FromContext(ctx, s.logger)

	if templateID == "" {
		return 0, apperr.New(apperr.BadRequest, "template_id is required")
	}

	var obj map[string]any
	switch p := params.(type) {
	case nil:
		obj = map[string]any{}
	case map[string]any:
		obj = cloneValue(p).(map[string]any)
	default:
		return 0, apperr.New(apperr.BadRequest, "params must be an object, got %T", params)
	}

	if _, err := s.templates.Get(templateID); err != nil {
		return 0, err
	}

	capacity := s.settings.Get().QueueCapacity
	now := s.clock.Now()
	id, ok := s.queue.Offer(capacity, func() int64 {
		return s.jobs.Create(templateID, obj, now).ID
	})
	if !ok {
		s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(apperr.QueueFull))))
		log.Warn("job rejected", "template_id", templateID, "queue_capacity", capacity)
		return 0, apperr.Full(capacity, s.retryAfter)
	}

	s.metrics.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("template_id", templateID)))
	log.Info("job queued", "job_id", id, "template_id", templateID)
	return id, nil
}

// GetJob returns a snapshot of the job with the given id.
func (s *Service) GetJob(ctx context.Context, id int64) (store.Job, error) {
	return s.jobs.Get(id)
}

// ListJobs returns snapshots of all jobs in ascending id order.
func (s *Service) ListJobs(ctx context.Context) []store.Job {
	return s.jobs.List()
}

// cloneValue deep-copies a decoded JSON value.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
