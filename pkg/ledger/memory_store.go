package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in memory for tests and local
// development. The single mutex gives the same atomicity guarantee a
// unique constraint provides in SQL.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
	}
}

func (ms *MemoryStore) InsertOrGet(ctx context.Context, eventID, eventType string, at time.Time) (*Entry, bool, error) {
	if eventID == "" {
		return nil, false, ErrEmptyEventID
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if existing, ok := ms.entries[eventID]; ok {
		cp := *existing
		return &cp, false, nil
	}

	entry := &Entry{
		EventID:    eventID,
		EventType:  eventType,
		ClaimedAt:  &at,
		ReceivedAt: at,
	}
	ms.entries[eventID] = entry

	cp := *entry
	return &cp, true, nil
}

func (ms *MemoryStore) Claim(ctx context.Context, eventID string, at time.Time, staleAfter time.Duration) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.entries[eventID]
	if !ok {
		return false, ErrEntryNotFound
	}
	if entry.Processed {
		return false, nil
	}
	if entry.ClaimedAt != nil && at.Sub(*entry.ClaimedAt) < staleAfter {
		return false, nil
	}

	entry.ClaimedAt = &at
	return true, nil
}

func (ms *MemoryStore) MarkProcessed(ctx context.Context, eventID string, at time.Time, handlerErr error) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.entries[eventID]
	if !ok {
		return ErrEntryNotFound
	}

	entry.Processed = true
	entry.ProcessedAt = &at
	if handlerErr != nil {
		msg := handlerErr.Error()
		entry.LastError = &msg
	}
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, eventID string) (*Entry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.entries[eventID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *entry
	return &cp, nil
}
