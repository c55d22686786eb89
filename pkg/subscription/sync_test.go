package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvine/billing/pkg/subscription"
)

func TestSynchronizer_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := subscription.NewMemoryStore()

	expired := now.AddDate(0, 0, -10)
	fresh := now.AddDate(0, 1, 0)

	suspendMe := &subscription.Tenant{
		ID: uuid.New(), Plan: subscription.PlanPro, Active: true,
		ExpiresAt: &expired, Status: subscription.StatusActive,
	}
	stayActive := &subscription.Tenant{
		ID: uuid.New(), Plan: subscription.PlanPro, Active: true,
		ExpiresAt: &fresh, Status: subscription.StatusActive,
	}
	deletedAt := now.AddDate(0, 0, -1)
	deleted := &subscription.Tenant{
		ID: uuid.New(), Plan: subscription.PlanPro, Active: true,
		ExpiresAt: &expired, Status: subscription.StatusActive, DeletedAt: &deletedAt,
	}
	store.Put(suspendMe)
	store.Put(stayActive)
	store.Put(deleted)

	sync, err := subscription.NewSynchronizer(store,
		subscription.WithSyncClock(func() time.Time { return now }))
	require.NoError(t, err)

	res, err := sync.Run(context.Background())
	require.NoError(t, err)

	// Soft-deleted tenants are not iterated.
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Updated)

	got, err := store.Get(context.Background(), suspendMe.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusSuspended, got.Status)

	got, err = store.Get(context.Background(), stayActive.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, got.Status)
}

func TestSynchronizer_RunIsIdempotent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := subscription.NewMemoryStore()

	expired := now.AddDate(0, 0, -3)
	store.Put(&subscription.Tenant{
		ID: uuid.New(), Plan: subscription.PlanPro, Active: true,
		ExpiresAt: &expired, Status: subscription.StatusActive,
	})

	sync, err := subscription.NewSynchronizer(store,
		subscription.WithSyncClock(func() time.Time { return now }))
	require.NoError(t, err)

	res, err := sync.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	// Second pass finds nothing to do.
	res, err = sync.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
}

func TestMemoryStore_CompareAndSetStatus(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryStore()
	id := uuid.New()
	store.Put(&subscription.Tenant{ID: id, Status: subscription.StatusActive})

	swapped, err := store.CompareAndSetStatus(context.Background(), id,
		subscription.StatusActive, subscription.StatusPastDue)
	require.NoError(t, err)
	assert.True(t, swapped)

	// Stale expectation loses without error.
	swapped, err = store.CompareAndSetStatus(context.Background(), id,
		subscription.StatusActive, subscription.StatusSuspended)
	require.NoError(t, err)
	assert.False(t, swapped)

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPastDue, got.Status)
}

func TestMemoryStore_SoftDelete(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemoryStore()
	id := uuid.New()
	store.Put(&subscription.Tenant{ID: id, Active: true, Status: subscription.StatusActive})

	at := time.Now().UTC()
	require.NoError(t, store.SoftDelete(context.Background(), id, at))

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusDeleted, got.Status)
	require.NotNil(t, got.DeletedAt)

	live, err := store.ListLive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, live)
}
