package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/checkernet/probed/internal/core"
)

// JobFunc consumes one reserved job. The callee owns the job's terminal
// state: it must complete, fail, or cancel the job on the store.
type JobFunc func(ctx context.Context, job core.Job)

// WorkOptions configures one queue worker.
type WorkOptions struct {
	Queue string
	// BatchSize is how many jobs one reserve pulls. Defaults to 1.
	BatchSize int
	// Concurrency bounds in-flight jobs for this worker. Defaults to 1.
	Concurrency int
	// PollInterval is the backstop cadence between reserve attempts when the
	// queue looks empty. NOTIFY wakeups usually cut the wait short.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Worker drains one named queue: reserve, dispatch to fn under a concurrency
// limit, repeat. Between empty reserves it blocks on the queue's NOTIFY
// channel with the poll interval as a timeout.
type Worker struct {
	store  *Store
	opts   WorkOptions
	fn     JobFunc
	logger *slog.Logger
}

// NewWorker creates a worker for one queue.
func NewWorker(store *Store, opts WorkOptions, fn JobFunc) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:  store,
		opts:   opts,
		fn:     fn,
		logger: logger.With("queue", opts.Queue),
	}
}

// Run blocks until ctx ends, then waits for in-flight jobs to finish.
func (w *Worker) Run(ctx context.Context) error {
	var group errgroup.Group
	group.SetLimit(w.opts.Concurrency)
	defer func() {
		_ = group.Wait()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		jobs, err := w.store.Reserve(ctx, w.opts.Queue, w.opts.BatchSize)
		switch {
		case errors.Is(err, ErrNoJobsAvailable):
			w.waitForWork(ctx)
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			w.logger.ErrorContext(ctx, "reserve failed", "error", err)
			w.sleep(ctx)
			continue
		}

		for _, job := range jobs {
			// Go blocks when the concurrency limit is reached, which also
			// throttles further reserves.
			group.Go(func() error {
				w.fn(ctx, job)
				return nil
			})
		}
	}
}

// waitForWork blocks until a send notification arrives or the poll interval
// elapses, whichever is first.
func (w *Worker) waitForWork(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, w.opts.PollInterval)
	defer cancel()

	err := w.store.WaitForNotification(waitCtx, w.opts.Queue)
	if err == nil || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return
	}
	// LISTEN failure degrades to plain polling.
	w.logger.DebugContext(ctx, "notification wait failed", "error", err)
	w.sleep(ctx)
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.opts.PollInterval):
	}
}
