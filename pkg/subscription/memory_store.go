package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements TenantStore and PlanChangeStore in memory for
// tests and local development. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*Tenant
	changes []*PlanChange
}

// NewMemoryStore creates an empty in-memory tenant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[uuid.UUID]*Tenant),
	}
}

// Put inserts or replaces a tenant. Test helper; production rows come
// from the registration flow outside this core.
func (ms *MemoryStore) Put(t *Tenant) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	cp := *t
	ms.tenants[t.ID] = &cp
}

func (ms *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	t, ok := ms.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (ms *MemoryStore) ListLive(ctx context.Context) ([]*Tenant, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]*Tenant, 0, len(ms.tenants))
	for _, t := range ms.tenants {
		if t.DeletedAt != nil {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (ms *MemoryStore) Update(ctx context.Context, id uuid.UUID, patch TenantPatch) (*Tenant, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, ok := ms.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}

	patch.Apply(t, time.Now().UTC())
	cp := *t
	return &cp, nil
}

func (ms *MemoryStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, ok := ms.tenants[id]
	if !ok {
		return false, ErrTenantNotFound
	}
	if t.Status != from {
		return false, nil
	}

	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (ms *MemoryStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, ok := ms.tenants[id]
	if !ok {
		return ErrTenantNotFound
	}

	t.DeletedAt = &at
	t.Status = StatusDeleted
	t.UpdatedAt = at
	return nil
}

func (ms *MemoryStore) Append(ctx context.Context, change *PlanChange) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	cp := *change
	ms.changes = append(ms.changes, &cp)
	return nil
}

func (ms *MemoryStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*PlanChange, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*PlanChange
	for _, c := range ms.changes {
		if c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}
