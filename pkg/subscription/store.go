package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantStore defines the persistence interface the billing core needs
// for tenants. Implementations must scope every query by tenant id and
// never nest tenant rows inside other aggregates.
type TenantStore interface {
	// Get retrieves a tenant by id, soft-deleted ones included.
	// Returns ErrTenantNotFound if no tenant exists.
	Get(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// ListLive returns all tenants that have not been soft-deleted.
	ListLive(ctx context.Context) ([]*Tenant, error)

	// Update applies a typed partial update to a tenant row.
	Update(ctx context.Context, id uuid.UUID, patch TenantPatch) (*Tenant, error)

	// CompareAndSetStatus atomically moves a tenant's status from one
	// value to another. Returns false without error when the stored
	// status no longer matches from; the caller lost the race and the
	// winner's write stands.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)

	// SoftDelete stamps DeletedAt and forces status to DELETED. The
	// actual row purge is a separate retention concern.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PlanChangeStore records plan transitions append-only.
type PlanChangeStore interface {
	Append(ctx context.Context, change *PlanChange) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*PlanChange, error)
}
