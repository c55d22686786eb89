package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements all queue repository interfaces for tests and
// local development. It mirrors the SQL contract: a unique index on
// (queue, idempotency_key) for dedup, claim locks with expiry recovery,
// and retention windows for terminal jobs.
type MemoryStorage struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	dead map[uuid.UUID]*DeadJob

	// Indexes
	byQueue  map[string][]uuid.UUID
	byStatus map[JobStatus][]uuid.UUID
	byKey    map[string]uuid.UUID // "queue\x00key" -> job id

	completedRetention time.Duration
	failedRetention    time.Duration

	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// MemoryStorageOption configures MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithCompletedRetention sets how long completed jobs are kept before
// the cleanup sweep removes them (and frees their idempotency keys).
func WithCompletedRetention(d time.Duration) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if d > 0 {
			ms.completedRetention = d
		}
	}
}

// WithFailedRetention sets the retention window for failed jobs.
func WithFailedRetention(d time.Duration) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if d > 0 {
			ms.failedRetention = d
		}
	}
}

// NewMemoryStorage creates a new in-memory storage implementation.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	ms := &MemoryStorage{
		jobs:               make(map[uuid.UUID]*Job),
		dead:               make(map[uuid.UUID]*DeadJob),
		byQueue:            make(map[string][]uuid.UUID),
		byStatus:           make(map[JobStatus][]uuid.UUID),
		byKey:              make(map[string]uuid.UUID),
		completedRetention: 24 * time.Hour,
		failedRetention:    7 * 24 * time.Hour,
		done:               make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}

	ms.lockTicker = time.NewTicker(time.Second)
	go ms.lockExpirationManager()

	return ms
}

// Close stops the background goroutines.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

func dedupKey(queue, key string) string {
	return queue + "\x00" + key
}

// CreateJob implements EnqueuerRepository and SchedulerRepository.
func (ms *MemoryStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.jobs[job.ID]; exists {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}

	if job.IdempotencyKey != "" {
		if _, taken := ms.byKey[dedupKey(job.Queue, job.IdempotencyKey)]; taken {
			return ErrDuplicateIdempotencyKey
		}
	}

	jobCopy := *job
	ms.jobs[job.ID] = &jobCopy

	ms.byQueue[job.Queue] = append(ms.byQueue[job.Queue], job.ID)
	ms.byStatus[job.Status] = append(ms.byStatus[job.Status], job.ID)
	if job.IdempotencyKey != "" {
		ms.byKey[dedupKey(job.Queue, job.IdempotencyKey)] = job.ID
	}

	return nil
}

// GetPendingJobByName implements SchedulerRepository.
func (ms *MemoryStorage) GetPendingJobByName(ctx context.Context, name string) (*Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, jobID := range ms.byStatus[JobStatusPending] {
		job := ms.jobs[jobID]
		if job.Name == name {
			jobCopy := *job
			return &jobCopy, nil
		}
	}
	return nil, nil
}

// ClaimJob implements WorkerRepository.
func (ms *MemoryStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Job

	// Oldest runnable job first within the requested queues.
	for _, jobID := range ms.byStatus[JobStatusPending] {
		job := ms.jobs[jobID]

		if !slices.Contains(queues, job.Queue) {
			continue
		}
		if job.ScheduledAt.After(now) {
			continue
		}
		if job.LockedUntil != nil && job.LockedUntil.After(now) {
			continue
		}

		if best == nil || job.ScheduledAt.Before(best.ScheduledAt) {
			best = job
		}
	}

	if best == nil {
		return nil, ErrNoJobToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = JobStatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	ms.removeFromStatusIndex(best.ID, JobStatusPending)
	ms.byStatus[JobStatusProcessing] = append(ms.byStatus[JobStatusProcessing], best.ID)

	jobCopy := *best
	return &jobCopy, nil
}

// CompleteJob implements WorkerRepository.
func (ms *MemoryStorage) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Status != JobStatusProcessing {
		return fmt.Errorf("job %s is not in processing state", jobID)
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil

	ms.removeFromStatusIndex(jobID, JobStatusProcessing)
	ms.byStatus[JobStatusCompleted] = append(ms.byStatus[JobStatusCompleted], jobID)

	return nil
}

// FailJob implements WorkerRepository. Applies the job's own backoff
// policy when attempts remain.
func (ms *MemoryStorage) FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Status != JobStatusProcessing {
		return fmt.Errorf("job %s is not in processing state", jobID)
	}

	job.Attempts++
	job.Error = &errorMsg
	job.LockedUntil = nil
	job.LockedBy = nil

	if job.Attempts >= job.MaxAttempts {
		job.Status = JobStatusFailed
		ms.removeFromStatusIndex(jobID, JobStatusProcessing)
		ms.byStatus[JobStatusFailed] = append(ms.byStatus[JobStatusFailed], jobID)
	} else {
		job.Status = JobStatusPending
		ms.removeFromStatusIndex(jobID, JobStatusProcessing)
		ms.byStatus[JobStatusPending] = append(ms.byStatus[JobStatusPending], jobID)

		job.ScheduledAt = time.Now().Add(job.Backoff.Delay(int(job.Attempts)))
	}

	return nil
}

// MoveToDeadLetter implements WorkerRepository.
func (ms *MemoryStorage) MoveToDeadLetter(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}

	entry := &DeadJob{
		ID:             uuid.New(),
		JobID:          job.ID,
		Queue:          job.Queue,
		Kind:           job.Kind,
		Name:           job.Name,
		IdempotencyKey: job.IdempotencyKey,
		Payload:        job.Payload,
		Attempts:       job.Attempts,
		FailedAt:       time.Now(),
		CreatedAt:      time.Now(),
	}
	if job.Error != nil {
		entry.Error = *job.Error
	}
	ms.dead[entry.ID] = entry

	ms.removeJobLocked(job)

	return nil
}

// ExtendLock implements WorkerRepository.
func (ms *MemoryStorage) ExtendLock(ctx context.Context, jobID uuid.UUID, duration time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Status != JobStatusProcessing {
		return fmt.Errorf("job %s is not in processing state", jobID)
	}

	lockUntil := time.Now().Add(duration)
	job.LockedUntil = &lockUntil

	return nil
}

// DeadLetters returns a snapshot of the dead-letter queue.
func (ms *MemoryStorage) DeadLetters() []*DeadJob {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]*DeadJob, 0, len(ms.dead))
	for _, d := range ms.dead {
		cp := *d
		out = append(out, &cp)
	}
	return out
}

// CleanupExpired removes terminal jobs past their retention window,
// freeing their idempotency keys for re-enqueue.
func (ms *MemoryStorage) CleanupExpired(ctx context.Context, now time.Time) (removed int, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, job := range ms.jobs {
		var cutoff time.Time
		switch job.Status {
		case JobStatusCompleted:
			if job.CompletedAt == nil {
				continue
			}
			cutoff = job.CompletedAt.Add(ms.completedRetention)
		case JobStatusFailed:
			cutoff = job.CreatedAt.Add(ms.failedRetention)
		default:
			continue
		}

		if now.After(cutoff) {
			ms.removeJobLocked(job)
			removed++
		}
	}

	return removed, nil
}

// removeJobLocked drops a job and all its index entries. Caller holds mu.
func (ms *MemoryStorage) removeJobLocked(job *Job) {
	ms.removeFromStatusIndex(job.ID, job.Status)
	ms.removeFromQueueIndex(job.ID, job.Queue)
	if job.IdempotencyKey != "" {
		delete(ms.byKey, dedupKey(job.Queue, job.IdempotencyKey))
	}
	delete(ms.jobs, job.ID)
}

func (ms *MemoryStorage) removeFromStatusIndex(jobID uuid.UUID, status JobStatus) {
	ms.byStatus[status] = slices.DeleteFunc(ms.byStatus[status], func(id uuid.UUID) bool {
		return id == jobID
	})
}

func (ms *MemoryStorage) removeFromQueueIndex(jobID uuid.UUID, queue string) {
	ms.byQueue[queue] = slices.DeleteFunc(ms.byQueue[queue], func(id uuid.UUID) bool {
		return id == jobID
	})
}

// lockExpirationManager recovers jobs claimed by dead workers. Without
// it, a crashed worker's claimed jobs would stay locked forever.
func (ms *MemoryStorage) lockExpirationManager() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.expireLocks()
		case <-ms.done:
			return
		}
	}
}

// expireLocks resets processing jobs whose lock has lapsed back to
// pending, preserving their attempt count.
func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	// Collect first. removeFromStatusIndex rewrites the slice being
	// ranged over, which would corrupt the iteration.
	now := time.Now()
	var expired []uuid.UUID
	for _, jobID := range ms.byStatus[JobStatusProcessing] {
		job := ms.jobs[jobID]
		if job.LockedUntil != nil && job.LockedUntil.Before(now) {
			expired = append(expired, jobID)
		}
	}

	for _, jobID := range expired {
		job := ms.jobs[jobID]
		job.Status = JobStatusPending
		job.LockedUntil = nil
		job.LockedBy = nil

		ms.removeFromStatusIndex(jobID, JobStatusProcessing)
		ms.byStatus[JobStatusPending] = append(ms.byStatus[JobStatusPending], jobID)
	}
}
