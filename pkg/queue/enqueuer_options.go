package queue

import (
	"log/slog"
	"time"
)

// EnqueuerOption is a functional option for configuring an Enqueuer.
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultQueue string
	logger       *slog.Logger
}

// WithDefaultQueue sets the default queue name.
func WithDefaultQueue(queue string) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if queue != "" {
			o.defaultQueue = queue
		}
	}
}

// WithEnqueuerLogger sets the logger for the enqueuer.
func WithEnqueuerLogger(logger *slog.Logger) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	queue          string
	idempotencyKey string
	maxAttempts    int8
	backoff        BackoffPolicy
	delay          time.Duration
	jobName        string
}

// WithQueue sets the queue for the job.
func WithQueue(queue string) EnqueueOption {
	return func(o *enqueueOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithIdempotencyKey sets the caller-supplied idempotency key, typically
// the id of the domain record the job serves. A duplicate key in the
// same queue makes Enqueue a no-op.
func WithIdempotencyKey(key string) EnqueueOption {
	return func(o *enqueueOptions) {
		o.idempotencyKey = key
	}
}

// WithMaxAttempts sets the retry budget (1-10).
// Capped at 10 to prevent unbounded retry loops on persistent failures.
func WithMaxAttempts(maxAttempts int8) EnqueueOption {
	return func(o *enqueueOptions) {
		o.maxAttempts = maxAttempts
	}
}

// WithBackoff sets the exponential backoff policy for retries.
func WithBackoff(policy BackoffPolicy) EnqueueOption {
	return func(o *enqueueOptions) {
		o.backoff = policy
	}
}

// WithDelay sets a delay before the job becomes runnable.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithJobName overrides the payload-derived job name.
func WithJobName(name string) EnqueueOption {
	return func(o *enqueueOptions) {
		if name != "" {
			o.jobName = name
		}
	}
}
