package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists EmailNotification records.
type Store interface {
	// CreateIfAbsent inserts the record unless another record with the
	// same dedupe key exists, in which case the existing record is
	// returned with created=false. SQL implementations back this with
	// a unique constraint on dedupe_key.
	CreateIfAbsent(ctx context.Context, n *EmailNotification) (*EmailNotification, bool, error)

	// Get returns a record by id, or ErrNotificationNotFound.
	Get(ctx context.Context, id uuid.UUID) (*EmailNotification, error)

	// MarkSent flips the record to sent.
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkFailed records a delivery failure. The record stays
	// non-terminal so a queue retry can still deliver it.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, at time.Time) error
}

// MemoryStore is the in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*EmailNotification
	byKey   map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory notification store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*EmailNotification),
		byKey:   make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, n *EmailNotification) (*EmailNotification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.DedupeKey != "" {
		if id, ok := s.byKey[n.DedupeKey]; ok {
			cp := *s.records[id]
			return &cp, false, nil
		}
	}

	cp := *n
	s.records[n.ID] = &cp
	if n.DedupeKey != "" {
		s.byKey[n.DedupeKey] = n.ID
	}

	out := cp
	return &out, true, nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*EmailNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.records[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return ErrNotificationNotFound
	}

	sentAt := at
	n.Status = StatusSent
	n.SentAt = &sentAt
	n.Error = nil
	n.UpdatedAt = at
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return ErrNotificationNotFound
	}

	n.Status = StatusFailed
	n.Error = &errMsg
	n.UpdatedAt = at
	return nil
}
