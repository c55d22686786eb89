package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/ratelimiter"
)

// WorkerRepository defines the interface for worker operations.
type WorkerRepository interface {
	// ClaimJob atomically claims the next runnable job in the given queues.
	ClaimJob(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Job, error)

	// CompleteJob marks a job as completed.
	CompleteJob(ctx context.Context, jobID uuid.UUID) error

	// FailJob records a failed attempt. If attempts remain, the storage
	// reschedules the job per its backoff policy; otherwise it marks the
	// job failed and leaves it for MoveToDeadLetter.
	FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error

	// MoveToDeadLetter parks an exhausted job for operator inspection.
	MoveToDeadLetter(ctx context.Context, jobID uuid.UUID) error

	// ExtendLock extends the lock for long-running jobs.
	ExtendLock(ctx context.Context, jobID uuid.UUID, duration time.Duration) error
}

// Worker pulls jobs from its queues with bounded concurrency and an
// optional dispatch rate ceiling, and executes them under a per-job
// timeout. A timeout counts as a retryable failure, never a hang.
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	queues   []string
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex

	pullInterval time.Duration
	lockTimeout  time.Duration
	jobTimeout   time.Duration
	limiter      ratelimiter.RateLimiter
	limiterKey   string
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a job worker.
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		queues:            []string{DefaultQueueName},
		pullInterval:      5 * time.Second,
		lockTimeout:       5 * time.Minute,
		jobTimeout:        2 * time.Minute,
		maxConcurrentJobs: 1,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		queues:       options.queues,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrentJobs),
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		jobTimeout:   options.jobTimeout,
		limiter:      options.limiter,
		limiterKey:   options.limiterKey,
		logger:       options.logger,
	}, nil
}

// RegisterHandler registers a single job handler.
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.Name()] = handler
	return nil
}

// RegisterHandlers registers multiple job handlers.
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing jobs in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Any("queues", w.queues),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker, waiting for in-flight jobs.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active jobs to complete",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main processing loop.
func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Don't add to the WaitGroup after Stop() started.
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.pullAndProcess(); err != nil {
						if !errors.Is(err, ErrHandlerNotFound) {
							w.logger.Error("failed to process job",
								slog.String("worker_id", w.workerID.String()),
								slog.String("error", err.Error()))
						}
					}
				}()
			default:
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// pullAndProcess claims a job, honors the dispatch rate ceiling, and runs it.
func (w *Worker) pullAndProcess() error {
	if !w.allowDispatch() {
		return nil
	}

	job, err := w.repo.ClaimJob(w.ctx, w.workerID, w.queues, w.lockTimeout)
	if err != nil {
		if errors.Is(err, ErrNoJobToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return nil
	}

	w.logger.Debug("claimed job",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_name", job.Name),
		slog.String("queue", job.Queue))

	return w.processJob(job)
}

// allowDispatch consults the optional rate limiter. Outbound providers
// (email in particular) impose per-second ceilings; claiming is skipped
// for this tick when the bucket is empty.
func (w *Worker) allowDispatch() bool {
	if w.limiter == nil {
		return true
	}

	res, err := w.limiter.Allow(w.ctx, w.limiterKey)
	if err != nil {
		w.logger.Error("rate limiter check failed, dispatching anyway",
			slog.String("worker_id", w.workerID.String()),
			slog.String("error", err.Error()))
		return true
	}
	if !res.Allowed() {
		w.logger.Debug("dispatch rate ceiling reached, skipping tick",
			slog.String("worker_id", w.workerID.String()),
			slog.Duration("retry_after", res.RetryAfter()))
		return false
	}
	return true
}

// processJob executes a job with its handler under the job timeout.
func (w *Worker) processJob(job *Job) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("job_id", job.ID.String()),
				slog.String("job_name", job.Name),
				slog.Any("panic", r))
			duration := time.Since(start)
			_ = w.handleJobFailure(job, retErr, duration)
		}
	}()

	w.mu.RLock()
	handler, ok := w.handlers[job.Name]
	w.mu.RUnlock()

	if !ok {
		return w.handleMissingHandler(job)
	}

	// The timeout context is detached from the worker lifecycle so
	// graceful shutdown lets in-flight jobs finish.
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	err := handler.Handle(ctx, job.Payload)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("job timed out after %v: %w", w.jobTimeout, err)
		}
		return w.handleJobFailure(job, err, duration)
	}

	return w.handleJobSuccess(job, duration)
}

// handleMissingHandler parks jobs with no registered handler directly in
// the dead-letter queue: retries cannot succeed until the handler code
// is deployed, and operators can requeue from there once it is.
func (w *Worker) handleMissingHandler(job *Job) error {
	w.logger.Error("no handler registered for job name",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_name", job.Name))

	errorMsg := "no handler registered for job name: " + job.Name
	if err := w.repo.FailJob(w.ctx, job.ID, errorMsg); err != nil {
		return fmt.Errorf("failed to mark job %s as failed: %w", job.ID, err)
	}

	if err := w.repo.MoveToDeadLetter(w.ctx, job.ID); err != nil {
		return fmt.Errorf("failed to move job %s to dead-letter queue: %w", job.ID, err)
	}

	return ErrHandlerNotFound
}

// handleJobFailure records the error, lets storage apply the backoff
// reschedule, and dead-letters the job once attempts are exhausted.
// Attempt N+1 never starts before this bookkeeping lands.
func (w *Worker) handleJobFailure(job *Job, execErr error, duration time.Duration) error {
	w.logger.Error("job failed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_name", job.Name),
		slog.Int("attempts", int(job.Attempts)),
		slog.Int("max_attempts", int(job.MaxAttempts)),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	if err := w.repo.FailJob(w.ctx, job.ID, execErr.Error()); err != nil {
		return fmt.Errorf("failed to update job %s status to failed: %w", job.ID, err)
	}

	// The claimed snapshot counts attempts before this failure.
	if job.Attempts+1 >= job.MaxAttempts {
		if err := w.repo.MoveToDeadLetter(w.ctx, job.ID); err != nil {
			return fmt.Errorf("failed to move job %s to dead-letter queue after max attempts: %w", job.ID, err)
		}

		w.logger.Warn("job moved to dead-letter queue",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("job_name", job.Name))
	}

	return nil
}

func (w *Worker) handleJobSuccess(job *Job, duration time.Duration) error {
	if err := w.repo.CompleteJob(w.ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job %s as completed: %w", job.ID, err)
	}

	w.logger.Info("job completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_name", job.Name),
		slog.String("queue", job.Queue),
		slog.Duration("duration", duration))

	return nil
}

// ExtendLockForJob extends the lock of a long-running job. Call
// periodically for jobs that outlive the lock timeout.
func (w *Worker) ExtendLockForJob(ctx context.Context, jobID uuid.UUID, extension time.Duration) error {
	return w.repo.ExtendLock(ctx, jobID, extension)
}

// WorkerInfo returns identifying information about the worker process.
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID.String(), hostname, os.Getpid()
}
