package queue

import (
	"log/slog"
	"time"
)

// SchedulerOption is a functional option for configuring a scheduler.
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	checkInterval time.Duration
	logger        *slog.Logger
}

// WithCheckInterval sets how often the scheduler checks for due jobs.
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		if d > 0 {
			o.checkInterval = d
		}
	}
}

// WithSchedulerLogger sets the logger for the scheduler.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// SchedulerJobOption is a functional option for a scheduled job.
type SchedulerJobOption func(*schedulerJobOptions)

type schedulerJobOptions struct {
	queue       string
	maxAttempts int8
}

// WithJobQueue sets the queue for the periodic job.
func WithJobQueue(queue string) SchedulerJobOption {
	return func(o *schedulerJobOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithJobMaxAttempts sets the retry budget for the periodic job (1-10).
func WithJobMaxAttempts(maxAttempts int8) SchedulerJobOption {
	return func(o *schedulerJobOptions) {
		if maxAttempts >= 1 && maxAttempts <= 10 {
			o.maxAttempts = maxAttempts
		}
	}
}
