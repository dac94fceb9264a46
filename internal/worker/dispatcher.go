// Package worker moves queued jobs through processing to a terminal state.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"tmplq/internal/apperr"
	"tmplq/internal/config"
	"tmplq/internal/render"
	"tmplq/internal/store"
)

// PreviewRunes is the length of the output preview kept in history entries.
const PreviewRunes = 200

// Pipeline is the state a Dispatcher works on. *service.Service implements it.
type Pipeline interface {
	Templates() *store.TemplateStore
	Jobs() *store.JobStore
	Queue() *store.Queue
	History() *store.History
	Settings() *config.Runtime
	Clock() clock.PassiveClock
}

// Scheduler runs fn once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// DelayFunc picks a processing delay in [lo, hi].
type DelayFunc func(lo, hi time.Duration) time.Duration

// UniformDelay draws a delay uniformly from [lo, hi], both ends inclusive.
func UniformDelay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// ClockScheduler schedules callbacks on a clock.
type ClockScheduler struct {
	Clock clock.WithDelayedExecution
}

func (s ClockScheduler) AfterFunc(d time.Duration, fn func()) {
	s.Clock.AfterFunc(d, fn)
}

// Config holds configuration for the dispatcher.
type Config struct {
	// Interval between dispatch ticks. Defaults to 100ms.
	Interval time.Duration
	// Ticker drives Run. Defaults to the wall clock.
	Ticker clock.WithTicker
	// Scheduler runs completions. Defaults to a ClockScheduler on the wall clock.
	Scheduler Scheduler
	// Delay picks processing delays. Defaults to UniformDelay.
	Delay  DelayFunc
	Logger *slog.Logger
	Meter  metric.Meter
	Tracer trace.Tracer
}

// Dispatcher pops one job id per tick, marks the job PROCESSING and schedules
// its completion after a randomized delay. Completions run independently, so
// any number of jobs may be processing at once.
type Dispatcher struct {
	p       Pipeline
	config  Config
	metrics *metrics

	tickMu   sync.Mutex
	inflight sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a dispatcher for p.
func New(p Pipeline, cfg Config) (*Dispatcher, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.Ticker == nil {
		cfg.Ticker = clock.RealClock{}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = ClockScheduler{Clock: clock.RealClock{}}
	}
	if cfg.Delay == nil {
		cfg.Delay = UniformDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter("tmplq/worker")
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("tmplq/worker")
	}

	m, err := newMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		p:       p,
		config:  cfg,
		metrics: m,
		done:    make(chan struct{}),
	}, nil
}

// Run ticks every Interval until ctx is cancelled. It then waits for in-flight
// completions, closes Done and returns ctx.Err(). Run may be called again
// after it returns; Done stays closed.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.config.Logger.Info("dispatcher starting", "interval", d.config.Interval)

	ticker := d.config.Ticker.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.config.Logger.Info("dispatcher stopping, waiting for in-flight jobs")
			d.inflight.Wait()
			d.doneOnce.Do(func() { close(d.done) })
			return ctx.Err()
		case <-ticker.C():
			d.Tick(ctx)
		}
	}
}

// Done returns a channel that is closed when Run has fully stopped.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Tick performs one dispatch decision: pop the head of the queue and, if the
// job is still QUEUED, start it. It reports whether a job was started.
// Concurrent calls are serialized.
func (d *Dispatcher) Tick(ctx context.Context) bool {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	id, ok := d.p.Queue().Pop()
	if !ok {
		return false
	}

	job, err := d.p.Jobs().Start(id, d.p.Clock().Now())
	if err != nil {
		d.config.Logger.Warn("skipping dequeued job", "job_id", id, "error", err)
		return false
	}

	delay := d.config.Delay(d.p.Settings().Get().ProcessingDelay.Bounds())

	spanCtx, span := d.config.Tracer.Start(context.WithoutCancel(ctx), "process_job",
		trace.WithAttributes(
			attribute.Int64("job.id", job.ID),
			attribute.String("template.id", job.TemplateID),
			attribute.Int64("job.delay_ms", delay.Milliseconds()),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)

	d.metrics.inflight.Add(ctx, 1)
	d.inflight.Add(1)
	d.config.Scheduler.AfterFunc(delay, func() {
		defer d.inflight.Done()
		defer span.End()
		defer d.metrics.inflight.Add(spanCtx, -1)
		d.complete(spanCtx, job)
	})

	d.config.Logger.Info("job started", "job_id", job.ID, "template_id", job.TemplateID, "delay", delay)
	return true
}

// complete finalizes a PROCESSING job and records it in history.
func (d *Dispatcher) complete(ctx context.Context, job store.Job) {
	span := trace.SpanFromContext(ctx)
	log := d.config.Logger.With("job_id", job.ID, "template_id", job.TemplateID)
	now := d.p.Clock().Now()

	var (
		final store.Job
		err   error
	)
	tpl, lookupErr := d.p.Templates().Get(job.TemplateID)
	if lookupErr != nil {
		final, err = d.p.Jobs().Fail(job.ID, store.JobError{
			Kind:    string(apperr.RenderError),
			Message: fmt.Sprintf("template %q no longer exists", job.TemplateID),
		}, now)
	} else if res, renderErr := render.Render(tpl.Body, job.Params); renderErr != nil {
		final, err = d.p.Jobs().Fail(job.ID, store.JobError{
			Kind:    string(apperr.RenderError),
			Message: renderErr.Error(),
		}, now)
	} else {
		final, err = d.p.Jobs().Succeed(job.ID, store.JobResult{
			Output:      res.Output,
			UsedKeys:    res.UsedKeys,
			MissingKeys: res.MissingKeys,
		}, now)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("failed to finalize job", "error", err)
		return
	}

	entry := store.HistoryEntry{Job: final}
	status := attribute.String("status", string(final.Status))
	if final.Result != nil {
		entry.Preview = Preview(final.Result.Output)
		d.metrics.duration.Record(ctx, final.Result.Duration.Seconds(), metric.WithAttributes(status))
		log.Info("job succeeded", "duration", final.Result.Duration, "missing_keys", len(final.Result.MissingKeys))
	} else {
		span.SetStatus(codes.Error, final.Error.Message)
		log.Warn("job failed", "reason", final.Error.Message)
	}
	d.metrics.completed.Add(ctx, 1, metric.WithAttributes(status))
	span.SetAttributes(status)

	d.p.History().Push(entry, d.p.Settings().Get().HistoryCapacity)
}

// Preview returns the first PreviewRunes runes of output, marking truncation with an ellipsis.
func Preview(output string) string {
	if utf8.RuneCountInString(output) <= PreviewRunes {
		return output
	}
	runes := []rune(output)
	return string(runes[:PreviewRunes]) + "…"
}
