package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a billing-bearing organization. The Status field is the last
// persisted result of CalculateStatus; it is refreshed on every payment
// event and on each synchronizer pass.
type Tenant struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	BillingEmail string     `json:"billing_email"`
	Plan         PlanID     `json:"plan"`
	Active       bool       `json:"active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Status       Status     `json:"status"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsDeleted reports whether the tenant has been soft-deleted.
func (t *Tenant) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Field wraps an optional patch value. Absent fields are left untouched
// by Apply, so a patch never overwrites a column with a zero value by
// accident.
type Field[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Field carrying v.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// TenantPatch is an explicit partial update for a tenant row. Every
// optional field distinguishes "absent" from "present with value".
type TenantPatch struct {
	Plan      Field[PlanID]
	Active    Field[bool]
	ExpiresAt Field[*time.Time]
	Status    Field[Status]
}

// IsZero reports whether the patch carries no changes.
func (p TenantPatch) IsZero() bool {
	return !p.Plan.Set && !p.Active.Set && !p.ExpiresAt.Set && !p.Status.Set
}

// Apply copies the set fields of the patch onto t and stamps UpdatedAt.
func (p TenantPatch) Apply(t *Tenant, now time.Time) {
	if p.Plan.Set {
		t.Plan = p.Plan.Value
	}
	if p.Active.Set {
		t.Active = p.Active.Value
	}
	if p.ExpiresAt.Set {
		t.ExpiresAt = p.ExpiresAt.Value
	}
	if p.Status.Set {
		t.Status = p.Status.Value
	}
	t.UpdatedAt = now
}

// PlanChange is an append-only record of a tenant moving between plans.
// Status transitions are deliberately not recorded here; they are derived
// state, not history.
type PlanChange struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	FromPlan  PlanID    `json:"from_plan"`
	ToPlan    PlanID    `json:"to_plan"`
	CreatedAt time.Time `json:"created_at"`
}
