package queue

import (
	"log/slog"
	"time"

	"github.com/fieldvine/billing/pkg/ratelimiter"
)

// WorkerOption is a functional option for configuring a worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	queues            []string
	pullInterval      time.Duration
	lockTimeout       time.Duration
	jobTimeout        time.Duration
	maxConcurrentJobs int
	limiter           ratelimiter.RateLimiter
	limiterKey        string
	logger            *slog.Logger
}

// WithQueues sets which queues the worker pulls from.
func WithQueues(queues ...string) WorkerOption {
	return func(o *workerOptions) {
		o.queues = queues
	}
}

// WithPullInterval sets how often the worker checks for new jobs.
func WithPullInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLockTimeout sets the claim lock duration.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithJobTimeout bounds single-job execution. A job hitting the bound
// fails as retryable rather than hanging a worker slot.
func WithJobTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.jobTimeout = d
		}
	}
}

// WithMaxConcurrentJobs sets the worker's concurrency bound.
func WithMaxConcurrentJobs(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrentJobs = n
		}
	}
}

// WithDispatchRateLimit caps dispatches using a token bucket, keyed so
// that several workers on the same provider share one ceiling.
func WithDispatchRateLimit(limiter ratelimiter.RateLimiter, key string) WorkerOption {
	return func(o *workerOptions) {
		if limiter != nil && key != "" {
			o.limiter = limiter
			o.limiterKey = key
		}
	}
}

// WithWorkerLogger sets the logger for the worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
