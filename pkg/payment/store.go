package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store persists Payment records.
type Store interface {
	// GetByGatewayID retrieves a payment by the gateway's payment id.
	// Returns ErrPaymentNotFound when no record exists.
	GetByGatewayID(ctx context.Context, gatewayID string) (*Payment, error)

	// Save upserts the payment by record id.
	Save(ctx context.Context, p *Payment) error

	// ListByTenant returns all payments for a tenant.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Payment, error)
}

// MemoryStore is the in-memory Store used by tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	payments  map[uuid.UUID]*Payment
	byGateway map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory payment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:  make(map[uuid.UUID]*Payment),
		byGateway: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) GetByGatewayID(ctx context.Context, gatewayID string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byGateway[gatewayID]
	if !ok {
		return nil, ErrPaymentNotFound
	}

	cp := *s.payments[id]
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.payments[p.ID] = &cp
	if p.GatewayPaymentID != "" {
		s.byGateway[p.GatewayPaymentID] = p.ID
	}
	return nil
}

func (s *MemoryStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Payment
	for _, p := range s.payments {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}
