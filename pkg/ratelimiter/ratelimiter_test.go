package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvine/billing/pkg/ratelimiter"
)

func newBucket(t *testing.T, cfg ratelimiter.Config) *ratelimiter.Bucket {
	t.Helper()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)

	b, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	return b
}

func TestBucket_AllowWithinCapacity(t *testing.T) {
	t.Parallel()

	b := newBucket(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Hour})
	ctx := context.Background()

	for i := range 3 {
		res, err := b.Allow(ctx, "postmark")
		require.NoError(t, err)
		assert.True(t, res.Allowed(), "request %d should pass", i)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := b.Allow(ctx, "postmark")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Positive(t, res.RetryAfter())
}

func TestBucket_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	b := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
	ctx := context.Background()

	res, err := b.Allow(ctx, "postmark")
	require.NoError(t, err)
	require.True(t, res.Allowed())

	res, err = b.Allow(ctx, "postmark")
	require.NoError(t, err)
	require.False(t, res.Allowed())

	res, err = b.Allow(ctx, "s3")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucket_Refills(t *testing.T) {
	t.Parallel()

	b := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: 50 * time.Millisecond})
	ctx := context.Background()

	res, err := b.Allow(ctx, "postmark")
	require.NoError(t, err)
	require.True(t, res.Allowed())

	res, err = b.Allow(ctx, "postmark")
	require.NoError(t, err)
	require.False(t, res.Allowed())

	require.Eventually(t, func() bool {
		res, err := b.Allow(ctx, "postmark")
		return err == nil && res.Allowed()
	}, time.Second, 10*time.Millisecond)
}

func TestBucket_Reset(t *testing.T) {
	t.Parallel()

	b := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
	ctx := context.Background()

	_, err := b.Allow(ctx, "postmark")
	require.NoError(t, err)

	require.NoError(t, b.Reset(ctx, "postmark"))

	res, err := b.Allow(ctx, "postmark")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucket_ConfigValidation(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)

	cases := []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1, RefillInterval: 0},
	}
	for _, cfg := range cases {
		_, err := ratelimiter.NewBucket(store, cfg)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	}
}

func TestBucket_AllowNRejectsNonPositive(t *testing.T) {
	t.Parallel()

	b := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})

	_, err := b.AllowN(context.Background(), "postmark", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}
