package limits_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvine/billing/pkg/limits"
	"github.com/fieldvine/billing/pkg/subscription"
	"github.com/fieldvine/billing/pkg/tenant"
)

var testPlans = map[subscription.PlanID]limits.Plan{
	subscription.PlanBasic: {
		ID:   subscription.PlanBasic,
		Name: "Basic",
		Limits: map[limits.Resource]int64{
			limits.ResourceUsers:   3,
			limits.ResourceClients: 100,
			limits.ResourceJobs:    50,
		},
	},
	subscription.PlanElite: {
		ID:   subscription.PlanElite,
		Name: "Elite",
		Limits: map[limits.Resource]int64{
			limits.ResourceUsers:   limits.Unlimited,
			limits.ResourceClients: limits.Unlimited,
			limits.ResourceJobs:    limits.Unlimited,
		},
	},
}

func staticResolver(plan subscription.PlanID, status subscription.Status) limits.SubscriptionResolver {
	return func(ctx context.Context, tenantID uuid.UUID) (subscription.PlanID, subscription.Status, error) {
		return plan, status, nil
	}
}

func staticCounter(n int64) limits.CounterFunc {
	return func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
		return n, nil
	}
}

func newEnforcer(t *testing.T, resolve limits.SubscriptionResolver, counters limits.CounterRegistry) limits.Enforcer {
	t.Helper()

	e, err := limits.NewEnforcer(context.Background(), limits.NewInMemSource(testPlans), counters, resolve)
	require.NoError(t, err)
	return e
}

func TestEnforcer_QuotaBoundary(t *testing.T) {
	t.Parallel()

	principal := tenant.Principal{TenantID: uuid.New()}

	t.Run("usage at limit rejects", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceUsers, staticCounter(3))
		e := newEnforcer(t, staticResolver(subscription.PlanBasic, subscription.StatusActive), counters)

		err := e.CanCreate(context.Background(), principal, limits.ResourceUsers)
		require.Error(t, err)
		assert.ErrorIs(t, err, limits.ErrQuotaExceeded)

		var quota *limits.QuotaExceededError
		require.ErrorAs(t, err, &quota)
		assert.Equal(t, int64(3), quota.Current)
		assert.Equal(t, int64(3), quota.Limit)
		assert.Equal(t, subscription.PlanBasic, quota.Plan)
		assert.Equal(t, limits.ResourceUsers, quota.Resource)
	})

	t.Run("usage at limit minus one accepts", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceUsers, staticCounter(2))
		e := newEnforcer(t, staticResolver(subscription.PlanBasic, subscription.StatusActive), counters)

		assert.NoError(t, e.CanCreate(context.Background(), principal, limits.ResourceUsers))
	})

	t.Run("unlimited accepts any usage", func(t *testing.T) {
		t.Parallel()

		counters := limits.NewRegistry()
		counters.Register(limits.ResourceUsers, staticCounter(1_000_000))
		e := newEnforcer(t, staticResolver(subscription.PlanElite, subscription.StatusActive), counters)

		assert.NoError(t, e.CanCreate(context.Background(), principal, limits.ResourceUsers))
	})
}

func TestEnforcer_EligibilityPrecedesQuota(t *testing.T) {
	t.Parallel()

	counterCalled := false
	counters := limits.NewRegistry()
	counters.Register(limits.ResourceClients, func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
		counterCalled = true
		return 0, nil
	})

	e := newEnforcer(t, staticResolver(subscription.PlanBasic, subscription.StatusSuspended), counters)

	err := e.CanCreate(context.Background(), tenant.Principal{TenantID: uuid.New()}, limits.ResourceClients)
	assert.ErrorIs(t, err, limits.ErrNotEligible)
	assert.False(t, counterCalled, "quota must not be consulted for ineligible tenants")
}

func TestEnforcer_PastDueKeepsAccess(t *testing.T) {
	t.Parallel()

	counters := limits.NewRegistry()
	counters.Register(limits.ResourceClients, staticCounter(0))
	e := newEnforcer(t, staticResolver(subscription.PlanBasic, subscription.StatusPastDue), counters)

	assert.NoError(t, e.CanCreate(context.Background(), tenant.Principal{TenantID: uuid.New()}, limits.ResourceClients))
}

func TestEnforcer_SuperAdminBypass(t *testing.T) {
	t.Parallel()

	// No counters, no resolver data needed: the bypass short-circuits.
	resolve := func(ctx context.Context, tenantID uuid.UUID) (subscription.PlanID, subscription.Status, error) {
		t.Fatal("resolver must not be called for super-admins")
		return "", "", nil
	}
	e := newEnforcer(t, resolve, nil)

	assert.NoError(t, e.CanCreate(context.Background(), tenant.Principal{SuperAdmin: true}, limits.ResourceUsers))
}

func TestEnforcer_MonthlyWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

	var gotSince time.Time
	counters := limits.NewRegistry()
	counters.Register(limits.ResourceJobs, func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
		gotSince = since
		return 0, nil
	})

	e, err := limits.NewEnforcer(context.Background(), limits.NewInMemSource(testPlans), counters,
		staticResolver(subscription.PlanBasic, subscription.StatusActive),
		limits.WithEnforcerClock(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, e.CanCreate(context.Background(), tenant.Principal{TenantID: uuid.New()}, limits.ResourceJobs))
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), gotSince)
}

func TestEnforcer_UnknownResourceAndCounter(t *testing.T) {
	t.Parallel()

	counters := limits.NewRegistry()
	e := newEnforcer(t, staticResolver(subscription.PlanBasic, subscription.StatusActive), counters)
	principal := tenant.Principal{TenantID: uuid.New()}

	err := e.CanCreate(context.Background(), principal, limits.Resource("invoices"))
	assert.ErrorIs(t, err, limits.ErrInvalidResource)

	err = e.CanCreate(context.Background(), principal, limits.ResourceUsers)
	assert.ErrorIs(t, err, limits.ErrNoCounterRegistered)
}

func TestEnforcer_CounterFailure(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection refused")
	counters := limits.NewRegistry()
	counters.Register(limits.ResourceUsers, func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
		return 0, dbErr
	})
	e := newEnforcer(t, staticResolver(subscription.PlanBasic, subscription.StatusActive), counters)

	err := e.CanCreate(context.Background(), tenant.Principal{TenantID: uuid.New()}, limits.ResourceUsers)
	assert.ErrorIs(t, err, limits.ErrFailedToCountUsage)
	assert.ErrorIs(t, err, dbErr)
}

func TestEnforcer_GetAllUsage(t *testing.T) {
	t.Parallel()

	counters := limits.NewRegistry()
	counters.Register(limits.ResourceUsers, staticCounter(2))
	counters.Register(limits.ResourceClients, staticCounter(40))
	e := newEnforcer(t, staticResolver(subscription.PlanBasic, subscription.StatusActive), counters)

	usage, err := e.GetAllUsage(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, limits.UsageInfo{Current: 2, Limit: 3}, usage[limits.ResourceUsers])
	assert.Equal(t, limits.UsageInfo{Current: 40, Limit: 100}, usage[limits.ResourceClients])
	// No counter for jobs: usage stays zero, limit still reported.
	assert.Equal(t, limits.UsageInfo{Current: 0, Limit: 50}, usage[limits.ResourceJobs])
}
