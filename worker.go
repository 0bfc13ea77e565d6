package identity

import (
	"context"
	"time"
)

// Dispatcher delivers a single job payload. The Mailer is the production
// implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, job EmailJob) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, job EmailJob) error

func (f DispatcherFunc) Dispatch(ctx context.Context, job EmailJob) error {
	return f(ctx, job)
}

// Worker leases jobs off the queue and runs them through the dispatcher.
// A dispatch error always flows back into the queue as a retry or a terminal
// failure; swallowing it would silently turn at-least-once into at-most-once.
type Worker struct {
	queue       Queue
	dispatcher  Dispatcher
	backoffBase time.Duration
	concurrency int
	logger      Logger
}

type WorkerOption func(*Worker)

// WithBackoffBase sets the first retry delay. Subsequent retries double it.
func WithBackoffBase(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.backoffBase = d
		}
	}
}

func WithWorkerConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func WithWorkerLogger(logger Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWorker(queue Queue, dispatcher Dispatcher, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:       queue,
		dispatcher:  dispatcher,
		backoffBase: DefaultBackoffBase,
		concurrency: 1,
		logger:      defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	return w
}

// Run consumes jobs until the context ends. It blocks; callers run it in a
// goroutine per desired worker.
func (w *Worker) Run(ctx context.Context) error {
	for {
		env, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("worker dequeue error", "error", err)
			continue
		}

		w.process(ctx, env)
	}
}

// Start launches the configured number of worker goroutines and returns a
// function that blocks until they have all exited.
func (w *Worker) Start(ctx context.Context) func() {
	done := make(chan struct{})
	remaining := w.concurrency

	results := make(chan struct{}, w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		go func() {
			defer func() { results <- struct{}{} }()
			_ = w.Run(ctx)
		}()
	}

	go func() {
		for i := 0; i < remaining; i++ {
			<-results
		}
		close(done)
	}()

	return func() { <-done }
}

func (w *Worker) process(ctx context.Context, env *JobEnvelope) {
	env.Attempts++

	// queue bookkeeping must outlive a shutdown that lands mid-job, or the
	// leased envelope is lost
	bctx := context.WithoutCancel(ctx)

	err := w.dispatcher.Dispatch(ctx, env.Job)
	if err == nil {
		if cerr := w.queue.Complete(bctx, env); cerr != nil {
			w.logger.Warn("worker complete error", "job_id", env.ID, "error", cerr)
		}
		return
	}

	env.LastError = err.Error()

	maxAttempts := env.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if env.Attempts >= maxAttempts {
		w.logger.Error("worker job exhausted", "job_id", env.ID, "attempts", env.Attempts, "error", err)
		if ferr := w.queue.Fail(bctx, env); ferr != nil {
			w.logger.Error("worker fail error", "job_id", env.ID, "error", ferr)
		}
		return
	}

	delay := w.retryDelay(env.Attempts)
	w.logger.Warn("worker job retry scheduled",
		"job_id", env.ID,
		"attempt", env.Attempts,
		"delay", delay,
		"error", err,
	)

	if rerr := w.queue.Retry(bctx, env, delay); rerr != nil {
		w.logger.Error("worker retry error", "job_id", env.ID, "error", rerr)
	}
}

// retryDelay doubles the base per completed attempt: base, 2x, 4x.
func (w *Worker) retryDelay(attempts int) time.Duration {
	delay := w.backoffBase
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}
