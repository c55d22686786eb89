package queue

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is used when no queue is specified.
const DefaultQueueName = "default"

// JobKind distinguishes one-shot jobs from scheduler-created periodic ones.
type JobKind string

const (
	JobKindOneTime  JobKind = "one-time"
	JobKindPeriodic JobKind = "periodic"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// BackoffPolicy governs the delay growth between retry attempts.
// The delay before attempt n+1 is BaseDelay * Multiplier^n, where n is
// the number of attempts already failed.
type BackoffPolicy struct {
	BaseDelay  time.Duration `json:"base_delay"`
	Multiplier float64       `json:"multiplier"`
}

// DefaultBackoff retries at 30s, 1m, 2m, 4m...
var DefaultBackoff = BackoffPolicy{BaseDelay: 30 * time.Second, Multiplier: 2}

// Delay returns the wait before the next attempt after failedAttempts
// failures. A zero policy falls back to DefaultBackoff.
func (p BackoffPolicy) Delay(failedAttempts int) time.Duration {
	if p.BaseDelay <= 0 {
		p = DefaultBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if failedAttempts < 1 {
		failedAttempts = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(failedAttempts-1)))
}

// Job is one unit of asynchronous work. The idempotency key is supplied
// by the caller, typically the id of the domain record the job serves;
// within a queue it guarantees at most one live unit of work per key.
type Job struct {
	ID             uuid.UUID     `json:"id"`
	Queue          string        `json:"queue"`
	Kind           JobKind       `json:"kind"`
	Name           string        `json:"name"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	Payload        []byte        `json:"payload,omitempty"`
	Status         JobStatus     `json:"status"`
	Attempts       int8          `json:"attempts"`
	MaxAttempts    int8          `json:"max_attempts"`
	Backoff        BackoffPolicy `json:"backoff"`
	ScheduledAt    time.Time     `json:"scheduled_at"`
	LockedUntil    *time.Time    `json:"locked_until,omitempty"`
	LockedBy       *uuid.UUID    `json:"locked_by,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Error          *string       `json:"error,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// DeadJob is a job that exhausted its retry budget, retained for
// operator inspection rather than discarded.
type DeadJob struct {
	ID             uuid.UUID `json:"id"`
	JobID          uuid.UUID `json:"job_id"`
	Queue          string    `json:"queue"`
	Kind           JobKind   `json:"kind"`
	Name           string    `json:"name"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Payload        []byte    `json:"payload,omitempty"`
	Error          string    `json:"error"`
	Attempts       int8      `json:"attempts"`
	FailedAt       time.Time `json:"failed_at"`
	CreatedAt      time.Time `json:"created_at"`
}
