package limits

import (
	"errors"
	"fmt"

	"github.com/fieldvine/billing/pkg/subscription"
)

// Domain errors for limits operations.
var (
	ErrPlanNotFound             = errors.New("limits.errors.plan_not_found")
	ErrInvalidResource          = errors.New("limits.errors.invalid_resource")
	ErrNoCounterRegistered      = errors.New("limits.errors.no_counter_registered")
	ErrInvalidPlanConfiguration = errors.New("limits.errors.invalid_plan_configuration")

	// ErrNotEligible means the tenant's subscription status forbids
	// creating resources at all; no quota was consulted.
	ErrNotEligible = errors.New("limits.errors.subscription_not_eligible")

	// ErrQuotaExceeded is the sentinel matched by errors.Is for any
	// QuotaExceededError.
	ErrQuotaExceeded = errors.New("limits.errors.quota_exceeded")

	ErrFailedToLoadPlans   = errors.New("limits.errors.failed_to_load_plans")
	ErrFailedToCountUsage  = errors.New("limits.errors.failed_to_count_resource_usage")
	ErrMissingDependencies = errors.New("limits.errors.missing_dependencies")
)

// QuotaExceededError carries enough context for a client to render an
// upgrade prompt programmatically.
type QuotaExceededError struct {
	Resource Resource            `json:"resource"`
	Current  int64               `json:"current"`
	Limit    int64               `json:"limit"`
	Plan     subscription.PlanID `json:"plan"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d/%d %s on plan %s", e.Current, e.Limit, e.Resource, e.Plan)
}

// Is makes errors.Is(err, ErrQuotaExceeded) match.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
