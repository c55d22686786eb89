package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvine/billing/pkg/ledger"
)

func TestMemoryStore_InsertOrGet(t *testing.T) {
	t.Parallel()

	store := ledger.NewMemoryStore()
	now := time.Now().UTC()

	entry, created, err := store.InsertOrGet(context.Background(), "evt_1", "payment_succeeded", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, entry.Processed)
	assert.Equal(t, "evt_1", entry.EventID)

	// Redelivery returns the existing row untouched.
	entry, created, err = store.InsertOrGet(context.Background(), "evt_1", "payment_succeeded", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, now, entry.ReceivedAt)
}

func TestMemoryStore_InsertOrGet_EmptyID(t *testing.T) {
	t.Parallel()

	store := ledger.NewMemoryStore()
	_, _, err := store.InsertOrGet(context.Background(), "", "payment_succeeded", time.Now())
	assert.ErrorIs(t, err, ledger.ErrEmptyEventID)
}

func TestMemoryStore_MarkProcessed(t *testing.T) {
	t.Parallel()

	store := ledger.NewMemoryStore()
	now := time.Now().UTC()

	_, _, err := store.InsertOrGet(context.Background(), "evt_1", "payment_failed", now)
	require.NoError(t, err)

	handlerErr := errors.New("provider unreachable")
	require.NoError(t, store.MarkProcessed(context.Background(), "evt_1", now, handlerErr))

	entry, err := store.Get(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, entry.Processed)
	require.NotNil(t, entry.LastError)
	assert.Equal(t, "provider unreachable", *entry.LastError)

	// Unknown ids are an error; the processor never marks before inserting.
	err = store.MarkProcessed(context.Background(), "evt_unknown", now, nil)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestMemoryStore_Claim(t *testing.T) {
	t.Parallel()

	store := ledger.NewMemoryStore()
	now := time.Now().UTC()
	staleAfter := 5 * time.Minute

	_, created, err := store.InsertOrGet(context.Background(), "evt_1", "payment_succeeded", now)
	require.NoError(t, err)
	require.True(t, created)

	// The inserting delivery holds the claim, so a second delivery
	// inside the stale window loses.
	claimed, err := store.Claim(context.Background(), "evt_1", now.Add(time.Second), staleAfter)
	require.NoError(t, err)
	assert.False(t, claimed)

	// Once the claim goes stale the entry is recoverable.
	claimed, err = store.Claim(context.Background(), "evt_1", now.Add(staleAfter+time.Second), staleAfter)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Processed entries are never claimable.
	require.NoError(t, store.MarkProcessed(context.Background(), "evt_1", now.Add(staleAfter+time.Minute), nil))
	claimed, err = store.Claim(context.Background(), "evt_1", now.Add(time.Hour), staleAfter)
	require.NoError(t, err)
	assert.False(t, claimed)

	_, err = store.Claim(context.Background(), "evt_unknown", now, staleAfter)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestMemoryStore_ConcurrentInsertOrGet(t *testing.T) {
	t.Parallel()

	store := ledger.NewMemoryStore()
	now := time.Now().UTC()

	const goroutines = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := store.InsertOrGet(context.Background(), "evt_race", "payment_succeeded", now)
			require.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly one caller wins the insert.
	assert.Equal(t, 1, createdCount)
}
