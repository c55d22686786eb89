package subscription

import (
	"math"
	"time"
)

// Grace and suspension windows, in days relative to the expiry date.
// A tenant is past due for the first 7 days after expiry, suspended after.
const pastDueGraceDays = 7

// CalculateStatus derives a tenant's subscription status from its raw
// billing fields. It is a pure function of its inputs: both the request
// path and the batch synchronizer call it with an explicit clock so the
// same tuple always yields the same status.
//
// Priority order: soft deletion dominates everything, then the active
// flag, then expiry. A nil expiry means the tenant has never been billed:
// entry-level plans stay in trial (there is no automatic trial-to-active
// promotion), paid plans are active. The top-tier plan is active whenever
// it is not deleted or canceled, regardless of expiry distance.
func CalculateStatus(expiry *time.Time, active bool, plan PlanID, deletedAt *time.Time, now time.Time) Status {
	if deletedAt != nil {
		return StatusDeleted
	}
	if !active {
		return StatusCanceled
	}
	if plan == PlanElite {
		return StatusActive
	}
	if expiry == nil {
		if plan == PlanBasic {
			return StatusTrial
		}
		return StatusActive
	}

	days := daysRemaining(*expiry, now)
	switch {
	case days < -pastDueGraceDays:
		return StatusSuspended
	case days < 0:
		return StatusPastDue
	default:
		return StatusActive
	}
}

// daysRemaining returns ceil((expiry - now) / 24h). The day the expiry
// falls on counts as remaining; the first negative value means the
// subscription lapsed less than a day ago.
func daysRemaining(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

// Recalculate applies CalculateStatus to a tenant snapshot.
func (t *Tenant) Recalculate(now time.Time) Status {
	return CalculateStatus(t.ExpiresAt, t.Active, t.Plan, t.DeletedAt, now)
}
