package queue

import "time"

// Config holds the environment configuration for the job queue.
type Config struct {
	PollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
	LockTimeout       time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"5m"`
	JobTimeout        time.Duration `env:"QUEUE_JOB_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout   time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxConcurrentJobs int           `env:"QUEUE_MAX_CONCURRENT_JOBS" envDefault:"10"`

	CompletedRetention time.Duration `env:"QUEUE_COMPLETED_RETENTION" envDefault:"24h"`
	FailedRetention    time.Duration `env:"QUEUE_FAILED_RETENTION" envDefault:"168h"`
}
