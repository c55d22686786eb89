package export

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists DataExport records.
type Store interface {
	// Create inserts a new export record.
	Create(ctx context.Context, e *DataExport) error

	// Get returns a record by id, or ErrExportNotFound.
	Get(ctx context.Context, id uuid.UUID) (*DataExport, error)

	// MarkCompleted records the finished artifact.
	MarkCompleted(ctx context.Context, id uuid.UUID, key, url string, size int64, expiresAt, at time.Time) error

	// MarkFailed records a generation failure. The record stays
	// non-terminal so a queue retry can regenerate.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, at time.Time) error

	// MarkExpired flips a completed record to expired after its
	// artifact has been deleted.
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) error

	// ListExpiring returns completed records whose ExpiresAt is at or
	// before asOf.
	ListExpiring(ctx context.Context, asOf time.Time) ([]*DataExport, error)

	// CountSince returns how many exports the tenant has requested at
	// or after since, regardless of outcome. Backs the plan quota on
	// export requests.
	CountSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)
}

// MemoryStore is the in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	exports map[uuid.UUID]*DataExport
}

// NewMemoryStore creates an empty in-memory export store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{exports: make(map[uuid.UUID]*DataExport)}
}

func (s *MemoryStore) Create(ctx context.Context, e *DataExport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.exports[e.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*DataExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exports[id]
	if !ok {
		return nil, ErrExportNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, id uuid.UUID, key, url string, size int64, expiresAt, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exports[id]
	if !ok {
		return ErrExportNotFound
	}

	completedAt := at
	expires := expiresAt
	e.Status = StatusCompleted
	e.Key = key
	e.URL = url
	e.Size = size
	e.Error = nil
	e.CompletedAt = &completedAt
	e.ExpiresAt = &expires
	e.UpdatedAt = at
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exports[id]
	if !ok {
		return ErrExportNotFound
	}

	e.Status = StatusFailed
	e.Error = &errMsg
	e.UpdatedAt = at
	return nil
}

func (s *MemoryStore) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exports[id]
	if !ok {
		return ErrExportNotFound
	}

	e.Status = StatusExpired
	e.URL = ""
	e.UpdatedAt = at
	return nil
}

func (s *MemoryStore) ListExpiring(ctx context.Context, asOf time.Time) ([]*DataExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*DataExport
	for _, e := range s.exports {
		if e.Status == StatusCompleted && e.ExpiresAt != nil && !e.ExpiresAt.After(asOf) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.exports {
		if e.TenantID == tenantID && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
