package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for job creation.
type EnqueuerRepository interface {
	// CreateJob stores a new job. When the job carries an idempotency
	// key that already exists in the same queue, the implementation
	// must return ErrDuplicateIdempotencyKey without creating a row.
	CreateJob(ctx context.Context, job *Job) error
}

// Enqueuer adds jobs to the queue. Enqueue returns as soon as the job is
// durably stored; execution happens out-of-band in a worker.
type Enqueuer struct {
	repo         EnqueuerRepository
	defaultQueue string
	logger       *slog.Logger
}

// NewEnqueuer creates a new Enqueuer.
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultQueue: DefaultQueueName,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:         repo,
		defaultQueue: options.defaultQueue,
		logger:       options.logger,
	}, nil
}

// Enqueue stores a new job. Enqueuing with an idempotency key that is
// already present in the target queue is a successful no-op: the
// existing unit of work stands and no duplicate is created.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) error {
	if payload == nil {
		return ErrPayloadNil
	}

	options := &enqueueOptions{
		queue:       e.defaultQueue,
		maxAttempts: 3,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.maxAttempts < 1 || options.maxAttempts > 10 {
		return ErrInvalidMaxAttempts
	}

	job, err := e.buildJob(payload, options)
	if err != nil {
		return err
	}

	if err := e.repo.CreateJob(ctx, job); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			e.logger.Debug("job coalesced into existing unit of work",
				slog.String("queue", job.Queue),
				slog.String("job_name", job.Name),
				slog.String("idempotency_key", job.IdempotencyKey))
			return nil
		}
		return fmt.Errorf("failed to create job %q in queue %q: %w", job.Name, job.Queue, err)
	}

	return nil
}

func (e *Enqueuer) buildJob(payload any, options *enqueueOptions) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	name := options.jobName
	if name == "" {
		name = qualifiedStructName(payload)
	}

	scheduledAt := time.Now()
	if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	return &Job{
		ID:             uuid.New(),
		Queue:          options.queue,
		Kind:           JobKindOneTime,
		Name:           name,
		IdempotencyKey: options.idempotencyKey,
		Payload:        payloadBytes,
		Status:         JobStatusPending,
		MaxAttempts:    options.maxAttempts,
		Backoff:        options.backoff,
		ScheduledAt:    scheduledAt,
		CreatedAt:      time.Now(),
	}, nil
}
