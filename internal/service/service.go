// Package service exposes the template and job operations of tmplq.
//
// A Service owns every collection of one instance: templates, jobs, the dispatch
// queue, the history log and the runtime settings. Instances are fully isolated
// from each other. The dispatcher in package worker drives queued jobs to
// completion through the same Service.
package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"k8s.io/utils/clock"

	"tmplq/internal/config"
	"tmplq/internal/logger"
	"tmplq/internal/store"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	// Clock supplies timestamps. Defaults to the wall clock.
	Clock clock.PassiveClock
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Meter records service metrics. Defaults to the global meter provider.
	Meter metric.Meter
	// RetryAfter is the hint returned with queue_full rejections. Defaults to 1s.
	RetryAfter time.Duration
}

// Service is one isolated instance of the job pipeline.
type Service struct {
	templates *store.TemplateStore
	jobs      *store.JobStore
	queue     *store.Queue
	history   *store.History
	settings  *config.Runtime

	clock      clock.PassiveClock
	logger     *slog.Logger
	metrics    *metrics
	retryAfter time.Duration
}

// New creates a Service using settings as its runtime configuration.
func New(settings *config.Runtime, opts Options) (*Service, error) {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter("tmplq/service")
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}

	history, err := store.NewHistory(settings.Get().HistoryCapacity)
	if err != nil {
		return nil, err
	}

	s := &Service{
		templates:  store.NewTemplateStore(),
		jobs:       store.NewJobStore(),
		queue:      store.NewQueue(),
		history:    history,
		settings:   settings,
		clock:      opts.Clock,
		logger:     opts.Logger,
		retryAfter: opts.RetryAfter,
	}

	s.metrics, err = newMetrics(opts.Meter, s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RetryHint derives the queue_full retry hint from the dispatch interval: one
// tick frees one backlog slot, rounded up to whole seconds.
func RetryHint(dispatchInterval time.Duration) time.Duration {
	secs := math.Ceil(dispatchInterval.Seconds())
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// Templates returns the template store.
func (s *Service) Templates() *store.TemplateStore { return s.templates }

// Jobs returns the job store.
func (s *Service) Jobs() *store.JobStore { return s.jobs }

// Queue returns the dispatch queue.
func (s *Service) Queue() *store.Queue { return s.queue }

// History returns the history log.
func (s *Service) History() *store.History { return s.history }

// Settings returns the runtime settings.
func (s *Service) Settings() *config.Runtime { return s.settings }

// Clock returns the clock used for job timestamps.
func (s *Service) Clock() clock.PassiveClock { return s.clock }

// Stats is a point-in-time summary of the pipeline.
type Stats struct {
	QueueDepth  int
	Queued      int
	Processing  int
	Succeeded   int
	Failed      int
	TotalJobs   int
	HistorySize int
	Templates   int
}

// Stats returns current counters. QueueDepth counts only ids awaiting dispatch.
func (s *Service) Stats(ctx context.Context) Stats {
	counts := s.jobs.CountByStatus()
	st := Stats{
		QueueDepth:  s.queue.Len(),
		Queued:      counts[store.JobStatusQueued],
		Processing:  counts[store.JobStatusProcessing],
		Succeeded:   counts[store.JobStatusSucceeded],
		Failed:      counts[store.JobStatusFailed],
		HistorySize: s.history.Len(),
		Templates:   s.templates.Len(),
	}
	st.TotalJobs = st.Queued + st.Processing + st.Succeeded + st.Failed
	return st
}

// Config returns the current runtime settings.
func (s *Service) Config(ctx context.Context) config.Settings {
	return s.settings.Get()
}

// UpdateConfig applies a partial settings update atomically.
func (s *Service) UpdateConfig(ctx context.Context, patch map[string]any) (config.Settings, error) {
	next, err := s.settings.Update(patch)
	if err != nil {
		return config.Settings{}, err
	}
	logger.FromContext(ctx, s.logger).Info("config updated",
		"queue_capacity", next.QueueCapacity,
		"history_capacity", next.HistoryCapacity,
		"max_template_bytes", next.MaxTemplateBytes,
		"delay_min_ms", next.ProcessingDelay.Min,
		"delay_max_ms", next.ProcessingDelay.Max,
	)
	return next, nil
}

// HistoryEntries returns terminal job snapshots, newest first.
func (s *Service) HistoryEntries(ctx context.Context) []store.HistoryEntry {
	return s.history.List()
}
