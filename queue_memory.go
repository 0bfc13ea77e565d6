package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is the in-process Queue used by tests and single-node setups.
// Durability is limited to the process lifetime.
type MemoryQueue struct {
	mu        sync.Mutex
	ready     chan *JobEnvelope
	done      chan struct{}
	completed []*JobEnvelope
	failed    []*JobEnvelope
	timers    []*time.Timer

	capacity    int
	maxAttempts int
}

type MemoryQueueOption func(*MemoryQueue)

func WithMemoryQueueMaxAttempts(n int) MemoryQueueOption {
	return func(q *MemoryQueue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithMemoryQueueCapacity bounds the ready buffer. Enqueue blocks once full.
func WithMemoryQueueCapacity(n int) MemoryQueueOption {
	return func(q *MemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

func NewMemoryQueue(opts ...MemoryQueueOption) *MemoryQueue {
	q := &MemoryQueue{
		done:        make(chan struct{}),
		capacity:    1024,
		maxAttempts: DefaultMaxAttempts,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}

	q.ready = make(chan *JobEnvelope, q.capacity)

	return q
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job EmailJob, opts ...EnqueueOption) (string, error) {
	env := &JobEnvelope{
		ID:          uuid.NewString(),
		Job:         job,
		MaxAttempts: q.maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(env)
		}
	}

	select {
	case q.ready <- env:
		return env.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*JobEnvelope, error) {
	select {
	case env := <-q.ready:
		return env, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Retry(ctx context.Context, env *JobEnvelope, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	// The redelivery must not be dropped when the buffer is momentarily
	// full; wait for a consumer unless the queue shuts down first.
	timer := time.AfterFunc(delay, func() {
		select {
		case q.ready <- env:
		case <-q.done:
		}
	})
	q.timers = append(q.timers, timer)

	return nil
}

func (q *MemoryQueue) Complete(ctx context.Context, env *JobEnvelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.completed = append(q.completed, env)
	return nil
}

func (q *MemoryQueue) Fail(ctx context.Context, env *JobEnvelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.failed = append(q.failed, env)
	return nil
}

// Completed returns a snapshot of retained completed jobs.
func (q *MemoryQueue) Completed() []*JobEnvelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*JobEnvelope, len(q.completed))
	copy(out, q.completed)
	return out
}

// Failed returns a snapshot of terminally failed jobs.
func (q *MemoryQueue) Failed() []*JobEnvelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*JobEnvelope, len(q.failed))
	copy(out, q.failed)
	return out
}

// Len reports how many jobs are waiting for delivery.
func (q *MemoryQueue) Len() int {
	return len(q.ready)
}

// Stop cancels pending retry timers and releases any redelivery still
// waiting for a consumer.
func (q *MemoryQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.timers {
		t.Stop()
	}
	q.timers = nil

	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

var _ Queue = (*MemoryQueue)(nil)
