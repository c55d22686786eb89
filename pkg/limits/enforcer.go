package limits

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/subscription"
	"github.com/fieldvine/billing/pkg/tenant"
)

// SubscriptionResolver returns the plan and computed status for a
// tenant. The enforcer uses it for the eligibility pre-check and to
// pick the limit table row.
type SubscriptionResolver func(ctx context.Context, tenantID uuid.UUID) (subscription.PlanID, subscription.Status, error)

// Enforcer is the per-request quota guard. It runs after the tenant
// guard has established the principal and before the mutating operation
// it protects.
type Enforcer interface {
	// CanCreate reports whether the principal's tenant may create one
	// more instance of the resource. Super-admins bypass entirely.
	// Returns ErrNotEligible before any counting when the subscription
	// status forbids creation, and a *QuotaExceededError when usage
	// has reached the plan limit.
	CanCreate(ctx context.Context, p tenant.Principal, res Resource) error

	// GetUsage returns the current usage and limit for one resource.
	GetUsage(ctx context.Context, tenantID uuid.UUID, res Resource) (UsageInfo, error)

	// GetAllUsage returns usage for every resource in the tenant's
	// plan. Counter errors leave that resource's usage at zero.
	GetAllUsage(ctx context.Context, tenantID uuid.UUID) (map[Resource]UsageInfo, error)
}

type enforcer struct {
	// Immutable after construction; thread-safety relies on no runtime
	// modification.
	plans    map[subscription.PlanID]Plan
	counters CounterRegistry
	resolve  SubscriptionResolver
	nowFn    func() time.Time
}

// EnforcerOption configures the enforcer.
type EnforcerOption func(*enforcer)

// WithEnforcerClock overrides the clock, for tests.
func WithEnforcerClock(nowFn func() time.Time) EnforcerOption {
	return func(e *enforcer) {
		if nowFn != nil {
			e.nowFn = nowFn
		}
	}
}

// NewEnforcer loads the plan table from src and returns an Enforcer.
func NewEnforcer(ctx context.Context, src Source, counters CounterRegistry, resolve SubscriptionResolver, opts ...EnforcerOption) (Enforcer, error) {
	if src == nil || resolve == nil {
		return nil, ErrMissingDependencies
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(plans) == 0 {
		return nil, errors.Join(ErrInvalidPlanConfiguration, errors.New("no plans loaded"))
	}

	if counters == nil {
		counters = NewRegistry()
	}

	e := &enforcer{
		plans:    plans,
		counters: counters,
		resolve:  resolve,
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

func (e *enforcer) CanCreate(ctx context.Context, p tenant.Principal, res Resource) error {
	if p.SuperAdmin {
		return nil
	}

	planID, status, err := e.resolve(ctx, p.TenantID)
	if err != nil {
		return err
	}

	// Eligibility precedes any counting. The top-tier plan stays
	// eligible on status alone because its status is ACTIVE whenever
	// the tenant is not canceled or deleted.
	if !status.Eligible() {
		return ErrNotEligible
	}

	plan, ok := e.plans[planID]
	if !ok {
		return ErrPlanNotFound
	}

	limit, ok := plan.Limits[res]
	if !ok {
		return ErrInvalidResource
	}
	if limit == Unlimited {
		return nil
	}

	current, err := e.count(ctx, p.TenantID, res)
	if err != nil {
		return err
	}

	if current >= limit {
		return &QuotaExceededError{
			Resource: res,
			Current:  current,
			Limit:    limit,
			Plan:     planID,
		}
	}

	return nil
}

func (e *enforcer) GetUsage(ctx context.Context, tenantID uuid.UUID, res Resource) (UsageInfo, error) {
	planID, _, err := e.resolve(ctx, tenantID)
	if err != nil {
		return UsageInfo{}, err
	}

	plan, ok := e.plans[planID]
	if !ok {
		return UsageInfo{}, ErrPlanNotFound
	}

	limit, ok := plan.Limits[res]
	if !ok {
		return UsageInfo{}, ErrInvalidResource
	}

	current, err := e.count(ctx, tenantID, res)
	if err != nil {
		return UsageInfo{}, err
	}

	return UsageInfo{Current: current, Limit: limit}, nil
}

func (e *enforcer) GetAllUsage(ctx context.Context, tenantID uuid.UUID) (map[Resource]UsageInfo, error) {
	planID, _, err := e.resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	plan, ok := e.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}

	out := make(map[Resource]UsageInfo, len(plan.Limits))
	for res, limit := range plan.Limits {
		info := UsageInfo{Limit: limit}
		if current, err := e.count(ctx, tenantID, res); err == nil {
			info.Current = current
		}
		out[res] = info
	}

	return out, nil
}

func (e *enforcer) count(ctx context.Context, tenantID uuid.UUID, res Resource) (int64, error) {
	counter, ok := e.counters[res]
	if !ok {
		return 0, ErrNoCounterRegistered
	}

	current, err := counter(ctx, tenantID, res.WindowStart(e.nowFn()))
	if err != nil {
		return 0, errors.Join(ErrFailedToCountUsage, err)
	}
	return current, nil
}
