package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvine/billing/pkg/queue"
)

func newJob(q, key string) *queue.Job {
	return &queue.Job{
		ID:             uuid.New(),
		Queue:          q,
		Kind:           queue.JobKindOneTime,
		Name:           "test.job",
		IdempotencyKey: key,
		Status:         queue.JobStatusPending,
		MaxAttempts:    3,
		Backoff:        queue.DefaultBackoff,
		ScheduledAt:    time.Now().Add(-time.Second),
		CreatedAt:      time.Now(),
	}
}

func TestMemoryStorage_IdempotencyKeyDedup(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	defer ms.Close()
	ctx := context.Background()

	require.NoError(t, ms.CreateJob(ctx, newJob("emails", "rec-1")))

	// Same key, same queue: rejected.
	err := ms.CreateJob(ctx, newJob("emails", "rec-1"))
	assert.ErrorIs(t, err, queue.ErrDuplicateIdempotencyKey)

	// Same key, different queue: independent unit of work.
	require.NoError(t, ms.CreateJob(ctx, newJob("exports", "rec-1")))

	// Empty keys never collide.
	require.NoError(t, ms.CreateJob(ctx, newJob("emails", "")))
	require.NoError(t, ms.CreateJob(ctx, newJob("emails", "")))
}

func TestMemoryStorage_ClaimAndComplete(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	defer ms.Close()
	ctx := context.Background()
	workerID := uuid.New()

	job := newJob("emails", "rec-1")
	require.NoError(t, ms.CreateJob(ctx, job))

	claimed, err := ms.ClaimJob(ctx, workerID, []string{"emails"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, queue.JobStatusProcessing, claimed.Status)

	// Nothing else to claim.
	_, err = ms.ClaimJob(ctx, workerID, []string{"emails"}, time.Minute)
	assert.ErrorIs(t, err, queue.ErrNoJobToClaim)

	require.NoError(t, ms.CompleteJob(ctx, job.ID))
}

func TestMemoryStorage_ClaimSkipsOtherQueuesAndFutureJobs(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	defer ms.Close()
	ctx := context.Background()

	future := newJob("emails", "later")
	future.ScheduledAt = time.Now().Add(time.Hour)
	require.NoError(t, ms.CreateJob(ctx, future))
	require.NoError(t, ms.CreateJob(ctx, newJob("exports", "other")))

	_, err := ms.ClaimJob(ctx, uuid.New(), []string{"emails"}, time.Minute)
	assert.ErrorIs(t, err, queue.ErrNoJobToClaim)
}

func TestMemoryStorage_FailJobReschedulesWithBackoff(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	defer ms.Close()
	ctx := context.Background()

	job := newJob("emails", "rec-1")
	job.Backoff = queue.BackoffPolicy{BaseDelay: time.Minute, Multiplier: 2}
	require.NoError(t, ms.CreateJob(ctx, job))

	_, err := ms.ClaimJob(ctx, uuid.New(), []string{"emails"}, time.Minute)
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, ms.FailJob(ctx, job.ID, "provider unreachable"))

	// Rescheduled one base delay out, not claimable yet.
	_, err = ms.ClaimJob(ctx, uuid.New(), []string{"emails"}, time.Minute)
	assert.ErrorIs(t, err, queue.ErrNoJobToClaim)

	pending, err := ms.GetPendingJobByName(ctx, "test.job")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, int8(1), pending.Attempts)
	assert.True(t, pending.ScheduledAt.After(before.Add(50*time.Second)))
}

func TestMemoryStorage_ExhaustedJobMovesToDeadLetter(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	defer ms.Close()
	ctx := context.Background()

	job := newJob("emails", "rec-1")
	job.MaxAttempts = 1
	require.NoError(t, ms.CreateJob(ctx, job))

	_, err := ms.ClaimJob(ctx, uuid.New(), []string{"emails"}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, ms.FailJob(ctx, job.ID, "fatal"))
	require.NoError(t, ms.MoveToDeadLetter(ctx, job.ID))

	dead := ms.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, job.ID, dead[0].JobID)
	assert.Equal(t, "fatal", dead[0].Error)
	assert.Equal(t, "rec-1", dead[0].IdempotencyKey)

	// The idempotency key is released with the job.
	require.NoError(t, ms.CreateJob(ctx, newJob("emails", "rec-1")))
}

func TestMemoryStorage_CleanupExpired(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage(queue.WithCompletedRetention(time.Hour))
	defer ms.Close()
	ctx := context.Background()

	job := newJob("emails", "rec-1")
	require.NoError(t, ms.CreateJob(ctx, job))
	_, err := ms.ClaimJob(ctx, uuid.New(), []string{"emails"}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, ms.CompleteJob(ctx, job.ID))

	removed, err := ms.CleanupExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = ms.CleanupExpired(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Key free again after cleanup.
	require.NoError(t, ms.CreateJob(ctx, newJob("emails", "rec-1")))
}

func TestMemoryStorage_ExpiredLockRecovered(t *testing.T) {
	t.Parallel()

	ms := queue.NewMemoryStorage()
	defer ms.Close()
	ctx := context.Background()

	// Two claimed jobs expiring in the same sweep exercises the index
	// rewrite inside the lock manager.
	require.NoError(t, ms.CreateJob(ctx, newJob("emails", "rec-1")))
	require.NoError(t, ms.CreateJob(ctx, newJob("emails", "rec-2")))

	crashed := uuid.New()
	_, err := ms.ClaimJob(ctx, crashed, []string{"emails"}, 100*time.Millisecond)
	require.NoError(t, err)
	_, err = ms.ClaimJob(ctx, crashed, []string{"emails"}, 100*time.Millisecond)
	require.NoError(t, err)

	// The background lock manager resets the jobs to pending once the
	// locks lapse, making them claimable by another worker.
	reclaimed := 0
	require.Eventually(t, func() bool {
		if _, err := ms.ClaimJob(ctx, uuid.New(), []string{"emails"}, time.Minute); err == nil {
			reclaimed++
		}
		return reclaimed == 2
	}, 5*time.Second, 100*time.Millisecond)
}
