// Package worker runs the queue consumers that execute probe jobs, including
// maintenance-window deferral and per-provider mutex acquisition.
package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/data"
	"github.com/checkernet/probed/internal/domain"
	"github.com/checkernet/probed/internal/observability/metrics"
	"github.com/checkernet/probed/internal/observability/statsd"
	"github.com/checkernet/probed/internal/queue"
)

// Deferral reasons for the job.deferred counter.
const (
	deferReasonMaintenance = "maintenance"
	deferReasonMutex       = "mutex"
)

// RunnerOptions configures the worker runtime.
type RunnerOptions struct {
	DB       *sql.DB
	Logger   *slog.Logger
	Metrics  statsd.Sink
	Handlers []core.Handler

	// Maintenance windows defer dequeued jobs until the window ends.
	Windows        []domain.MaintenanceWindow
	WindowDuration time.Duration

	// Timeouts bounds each handler invocation per job type; DefaultTimeout
	// covers types without an entry.
	Timeouts       map[domain.JobType]time.Duration
	DefaultTimeout time.Duration

	// LockRetry is how far out a job re-sends itself after losing the
	// per-provider mutex. MutexStale is how old a claim must be to be stolen.
	LockRetry  time.Duration
	MutexStale time.Duration

	PollInterval time.Duration
	Concurrency  int
	BatchSize    int
	Hostname     string

	// Optional injections for tests.
	Queue        *queue.Store
	Mutexes      core.MutexStore
	TimeProvider data.TimeProvider
}

// Runner owns one queue worker per registered handler and the shared job
// pipeline they dispatch through.
type Runner struct {
	store    *queue.Store
	mutexes  core.MutexStore
	handlers map[domain.JobType]core.Handler
	opts     RunnerOptions
	logger   *slog.Logger
	metrics  statsd.Sink
	tp       data.TimeProvider
}

// NewRunner validates options and wires a worker Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Queue == nil {
		return nil, errors.New("either DB or Queue must be provided")
	}
	if len(opts.Handlers) == 0 {
		return nil, errors.New("at least one handler is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = time.Minute
	}
	if opts.LockRetry <= 0 {
		opts.LockRetry = time.Minute
	}
	if opts.MutexStale <= 0 {
		opts.MutexStale = 30 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Hostname == "" {
		if hn, err := os.Hostname(); err == nil {
			opts.Hostname = hn
		} else {
			opts.Hostname = "unknown"
		}
	}

	store := opts.Queue
	if store == nil {
		store = queue.NewStore(opts.DB, queue.StoreOptions{
			Logger:       opts.Logger,
			TimeProvider: opts.TimeProvider,
		})
	}
	mutexes := opts.Mutexes
	if mutexes == nil {
		if opts.DB == nil {
			return nil, errors.New("DB is required when no mutex store is injected")
		}
		mutexes = data.NewMutexRepoWithTimeProvider(opts.DB, opts.TimeProvider)
	}

	handlers := make(map[domain.JobType]core.Handler, len(opts.Handlers))
	for _, h := range opts.Handlers {
		jt := h.Type()
		if !jt.Valid() {
			return nil, fmt.Errorf("handler has unknown job type %q", jt)
		}
		if _, dup := handlers[jt]; dup {
			return nil, fmt.Errorf("duplicate handler for job type %q", jt)
		}
		handlers[jt] = h
	}

	return &Runner{
		store:    store,
		mutexes:  mutexes,
		handlers: handlers,
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		tp:       opts.TimeProvider,
	}, nil
}

// Run starts one worker per registered job type and blocks until the context
// is cancelled and in-flight jobs have drained.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "worker runtime starting",
		"job_types", len(r.handlers),
		"concurrency", r.opts.Concurrency,
		"poll_interval", r.opts.PollInterval.String())

	group, ctx := errgroup.WithContext(ctx)
	for jt := range r.handlers {
		w := queue.NewWorker(r.store, queue.WorkOptions{
			Queue:        jt.QueueName(),
			BatchSize:    r.opts.BatchSize,
			Concurrency:  r.opts.Concurrency,
			PollInterval: r.opts.PollInterval,
			Logger:       r.logger,
		}, r.pipeline(jt))
		group.Go(func() error {
			return w.Run(ctx)
		})
	}
	return group.Wait()
}

// pipeline builds the JobFunc for one job type: maintenance deferral, mutex
// acquisition for per-provider types, then the handler under its timeout.
func (r *Runner) pipeline(jt domain.JobType) queue.JobFunc {
	handler := r.handlers[jt]
	return func(ctx context.Context, job core.Job) {
		now := r.tp.Now().UTC()

		if status := domain.EvaluateMaintenance(now, r.opts.Windows, r.opts.WindowDuration); status.Active {
			r.logger.InfoContext(ctx, "deferring job for maintenance window",
				"job_id", job.ID, "queue", job.Queue,
				"window", status.Window.Label, "resume_at", status.ResumeAt)
			r.deferJob(ctx, job, status.ResumeAt, deferReasonMaintenance)
			return
		}

		var spAddress string
		if jt.PerProvider() {
			var payload domain.ProbePayload
			if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.SPAddress == "" {
				r.logger.ErrorContext(ctx, "job payload is malformed",
					"job_id", job.ID, "queue", job.Queue, "error", err)
				r.finish(ctx, job, r.store.Fail)
				return
			}
			spAddress = payload.SPAddress

			acquired, err := r.mutexes.Acquire(ctx, core.AcquireMutexParams{
				SPAddress:  spAddress,
				JobType:    jt,
				JobID:      job.ID.String(),
				Hostname:   r.opts.Hostname,
				StaleAfter: r.opts.MutexStale,
			})
			if err != nil {
				r.logger.ErrorContext(ctx, "mutex acquire failed",
					"job_id", job.ID, "sp_address", spAddress, "error", err)
				r.finish(ctx, job, r.store.Fail)
				metrics.JobCompleted(r.metrics, metrics.JobCompletion{
					JobType: string(jt), Result: metrics.ResultError, Err: err,
				})
				return
			}
			if !acquired {
				r.logger.InfoContext(ctx, "provider mutex held, deferring job",
					"job_id", job.ID, "sp_address", spAddress,
					"retry_in", r.opts.LockRetry.String())
				r.deferJob(ctx, job, now.Add(r.opts.LockRetry), deferReasonMutex)
				return
			}
			defer r.releaseMutex(ctx, spAddress, job)
		}

		r.runHandler(ctx, jt, handler, job)
	}
}

// runHandler invokes the handler under the job type's timeout and records the
// terminal state.
func (r *Runner) runHandler(ctx context.Context, jt domain.JobType, handler core.Handler, job core.Job) {
	metrics.JobStarted(r.metrics, string(jt))
	started := r.tp.Now()

	runCtx, cancel := context.WithTimeout(ctx, r.timeoutFor(jt))
	defer cancel()

	err := handler.Run(runCtx, job)
	duration := r.tp.Now().Sub(started)

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// Checked before the nil-error case: a handler that ignores the
		// cancellation signal and runs to completion still overran its budget,
		// and its result is recorded as aborted.
		if err == nil {
			err = runCtx.Err()
		}
		r.logger.WarnContext(ctx, "job timed out",
			"job_id", job.ID, "queue", job.Queue, "timeout", r.timeoutFor(jt).String())
		r.finish(ctx, job, r.store.Fail)
		metrics.JobCompleted(r.metrics, metrics.JobCompletion{
			JobType: string(jt), Result: metrics.ResultAborted, Duration: duration, Err: err,
		})
	case err == nil:
		r.finish(ctx, job, r.store.Complete)
		metrics.JobCompleted(r.metrics, metrics.JobCompletion{
			JobType: string(jt), Result: metrics.ResultSuccess, Duration: duration,
		})
	default:
		r.logger.ErrorContext(ctx, "job failed",
			"job_id", job.ID, "queue", job.Queue, "error", err)
		r.finish(ctx, job, r.store.Fail)
		metrics.JobCompleted(r.metrics, metrics.JobCompletion{
			JobType: string(jt), Result: metrics.ResultError, Duration: duration, Err: err,
		})
	}
}

// deferJob consumes the dequeued job and re-sends the same payload with a
// later start. Completing first frees the singleton slot for the re-send; a
// conflict afterwards means an equivalent job is already queued, which is the
// outcome we wanted.
func (r *Runner) deferJob(ctx context.Context, job core.Job, startAfter time.Time, reason string) {
	r.finish(ctx, job, r.store.Complete)

	_, err := r.store.Send(ctx, core.SendRequest{
		Queue:        job.Queue,
		Payload:      job.Payload,
		SingletonKey: job.SingletonKey,
		StartAfter:   startAfter,
	})
	if err != nil && !errors.Is(err, queue.ErrSingletonConflict) {
		r.logger.ErrorContext(ctx, "re-send of deferred job failed",
			"job_id", job.ID, "queue", job.Queue, "error", err)
	}
	metrics.JobDeferred(r.metrics, job.Queue, reason)
}

// finish drives the job to a terminal state, using a background context when
// the worker's own context is already cancelled.
func (r *Runner) finish(ctx context.Context, job core.Job, op func(context.Context, uuid.UUID) (bool, error)) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if _, err := op(ctx, job.ID); err != nil {
		r.logger.ErrorContext(ctx, "job state transition failed",
			"job_id", job.ID, "queue", job.Queue, "error", err)
	}
}

func (r *Runner) releaseMutex(ctx context.Context, spAddress string, job core.Job) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	released, err := r.mutexes.Release(ctx, spAddress, job.ID.String())
	if err != nil {
		r.logger.ErrorContext(ctx, "mutex release failed",
			"job_id", job.ID, "sp_address", spAddress, "error", err)
		return
	}
	if !released {
		// A successor stole the claim after it went stale; nothing to free.
		r.logger.WarnContext(ctx, "mutex already claimed elsewhere",
			"job_id", job.ID, "sp_address", spAddress)
	}
}

func (r *Runner) timeoutFor(jt domain.JobType) time.Duration {
	if d, ok := r.opts.Timeouts[jt]; ok && d > 0 {
		return d
	}
	return r.opts.DefaultTimeout
}
