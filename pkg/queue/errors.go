package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrDuplicateIdempotencyKey is returned by storage when a job with
	// the same idempotency key already exists in the queue. The enqueuer
	// treats it as a no-op, not a failure.
	ErrDuplicateIdempotencyKey = errors.New("job with this idempotency key already exists")

	// ErrNoJobToClaim is returned by storage when no runnable job is available.
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrHandlerNotFound is returned when no handler is registered for a job name.
	ErrHandlerNotFound = errors.New("no handler registered for job name")

	// ErrNoHandlers is returned when a worker is started without handlers.
	ErrNoHandlers = errors.New("no job handlers registered")

	// ErrJobAlreadyRegistered is returned when a periodic job name is registered twice.
	ErrJobAlreadyRegistered = errors.New("periodic job already registered")

	// ErrSchedulerNotConfigured is returned when the scheduler has no jobs.
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered jobs")

	// ErrInvalidMaxAttempts is returned when max attempts is out of range.
	ErrInvalidMaxAttempts = errors.New("max attempts must be between 1 and 10")
)
