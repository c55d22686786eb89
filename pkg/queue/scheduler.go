package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchedulerRepository defines the interface for scheduler operations.
type SchedulerRepository interface {
	// CreateJob creates a new job in storage.
	CreateJob(ctx context.Context, job *Job) error

	// GetPendingJobByName returns a pending job with the given name, or nil.
	GetPendingJobByName(ctx context.Context, name string) (*Job, error)
}

// Scheduler materializes periodic jobs (synchronizer passes, notification
// sweeps, retention) as queue jobs on their schedule. It only creates
// jobs; workers execute them like any other.
type Scheduler struct {
	repo     SchedulerRepository
	jobs     map[string]*scheduledJob
	mu       sync.RWMutex
	ticker   *time.Ticker
	interval time.Duration
	logger   *slog.Logger
}

// scheduledJob holds configuration for one periodic job.
type scheduledJob struct {
	name            string
	schedule        Schedule
	queue           string
	maxAttempts     int8
	lastScheduledAt *time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(repo SchedulerRepository, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		repo:     repo,
		jobs:     make(map[string]*scheduledJob),
		interval: options.checkInterval,
		logger:   options.logger,
	}, nil
}

// AddJob registers a periodic job.
func (s *Scheduler) AddJob(name string, schedule Schedule, opts ...SchedulerJobOption) error {
	jobOpts := &schedulerJobOptions{
		queue:       DefaultQueueName,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(jobOpts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return ErrJobAlreadyRegistered
	}

	s.jobs[name] = &scheduledJob{
		name:        name,
		schedule:    schedule,
		queue:       jobOpts.queue,
		maxAttempts: jobOpts.maxAttempts,
	}

	s.logger.Info("registered periodic job",
		slog.String("job_name", name),
		slog.String("schedule", schedule.String()))

	return nil
}

// Start runs the scheduler loop until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	jobCount := len(s.jobs)
	s.mu.RUnlock()

	if jobCount == 0 {
		return ErrSchedulerNotConfigured
	}

	s.ticker = time.NewTicker(s.interval)
	defer s.ticker.Stop()

	s.checkJobs(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-s.ticker.C:
			s.checkJobs(ctx)
		}
	}
}

func (s *Scheduler) checkJobs(ctx context.Context) {
	s.mu.RLock()
	jobs := make([]*scheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.RUnlock()

	now := time.Now()
	for _, job := range jobs {
		if err := s.scheduleJobIfDue(ctx, job, now); err != nil {
			s.logger.Error("failed to schedule periodic job",
				slog.String("job_name", job.name),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) scheduleJobIfDue(ctx context.Context, job *scheduledJob, now time.Time) error {
	nextRun := s.calculateNextRun(job, now)

	if job.lastScheduledAt != nil && nextRun.After(now) {
		return nil
	}

	// A pending instance may already exist (created before a restart).
	existing, err := s.repo.GetPendingJobByName(ctx, job.name)
	if err == nil && existing != nil {
		s.updateJobState(job.name, &existing.ScheduledAt)
		s.logger.Debug("periodic job already pending",
			slog.String("job_name", job.name),
			slog.Time("scheduled_for", existing.ScheduledAt))
		return nil
	}

	if err := s.createJob(ctx, job, nextRun); err != nil {
		return fmt.Errorf("failed to create periodic job: %w", err)
	}

	s.updateJobState(job.name, &nextRun)

	s.logger.Info("created periodic job",
		slog.String("job_name", job.name),
		slog.Time("scheduled_for", nextRun))

	return nil
}

func (s *Scheduler) calculateNextRun(job *scheduledJob, now time.Time) time.Time {
	if job.lastScheduledAt == nil {
		return job.schedule.Next(now)
	}
	return job.schedule.Next(*job.lastScheduledAt)
}

func (s *Scheduler) updateJobState(name string, scheduledAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[name]; ok {
		j.lastScheduledAt = scheduledAt
	}
}

func (s *Scheduler) createJob(ctx context.Context, job *scheduledJob, scheduledAt time.Time) error {
	return s.repo.CreateJob(ctx, &Job{
		ID:          uuid.New(),
		Queue:       job.queue,
		Kind:        JobKindPeriodic,
		Name:        job.name,
		Status:      JobStatusPending,
		MaxAttempts: job.maxAttempts,
		Backoff:     DefaultBackoff,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	})
}

// RemoveJob removes a periodic job from the scheduler.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, name)

	s.logger.Info("removed periodic job",
		slog.String("job_name", name))
}

// ListJobs returns all registered periodic job names.
func (s *Scheduler) ListJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}
