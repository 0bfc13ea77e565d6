package identity

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 6 * time.Second
)

// EmailJob is the payload of a queued mail delivery.
type EmailJob struct {
	To           []string       `json:"to"`
	From         string         `json:"from,omitempty"`
	Subject      string         `json:"subject"`
	Template     string         `json:"template,omitempty"`
	TemplateData map[string]any `json:"template_data,omitempty"`
	Text         string         `json:"text,omitempty"`
	HTML         string         `json:"html,omitempty"`
}

// JobEnvelope wraps a job with its delivery bookkeeping. The envelope travels
// through the queue as JSON; Attempts counts started deliveries.
type JobEnvelope struct {
	ID          string    `json:"id"`
	Job         EmailJob  `json:"job"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	LastError   string    `json:"last_error,omitempty"`
}

type EnqueueOption func(*JobEnvelope)

// WithMaxAttempts overrides the attempt ceiling for a single job.
func WithMaxAttempts(n int) EnqueueOption {
	return func(env *JobEnvelope) {
		if n > 0 {
			env.MaxAttempts = n
		}
	}
}

// Queue is the transport between the request path and the mail worker.
// Enqueue returns once the job is durably recorded; delivery happens later on
// a worker. Dequeue blocks until a job is ready or the context ends.
type Queue interface {
	Enqueue(ctx context.Context, job EmailJob, opts ...EnqueueOption) (string, error)
	Dequeue(ctx context.Context) (*JobEnvelope, error)
	Retry(ctx context.Context, env *JobEnvelope, delay time.Duration) error
	Complete(ctx context.Context, env *JobEnvelope) error
	Fail(ctx context.Context, env *JobEnvelope) error
}
