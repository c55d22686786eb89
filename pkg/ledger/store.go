package ledger

import (
	"context"
	"time"
)

// Store persists ledger entries. The InsertOrGet and Claim contracts
// are the foundation for idempotent webhook processing: under
// concurrent redelivery of the same event id, exactly one caller wins
// the claim and proceeds to run side effects.
//
// SQL implementations back this with a unique constraint on event_id
// (INSERT ... ON CONFLICT DO NOTHING followed by a read) and a
// conditional UPDATE on claimed_at.
type Store interface {
	// InsertOrGet atomically records the event as seen. If the event id
	// is new, it inserts an unprocessed entry claimed by the caller and
	// returns it with created=true. If the id already exists, it
	// returns the existing entry with created=false and does not modify
	// it.
	InsertOrGet(ctx context.Context, eventID, eventType string, at time.Time) (entry *Entry, created bool, err error)

	// Claim tries to take ownership of an existing unprocessed entry.
	// It succeeds only when the entry is unclaimed or its claim is
	// older than staleAfter, so of several concurrent deliveries at
	// most one wins while an entry stranded by a crashed run becomes
	// claimable again once the window lapses.
	Claim(ctx context.Context, eventID string, at time.Time, staleAfter time.Duration) (claimed bool, err error)

	// MarkProcessed flips the entry to processed, recording the handler
	// error if the processing run failed. Never called while a handler
	// is still mid-flight.
	MarkProcessed(ctx context.Context, eventID string, at time.Time, handlerErr error) error

	// Get returns the entry for an event id, or ErrEntryNotFound.
	Get(ctx context.Context, eventID string) (*Entry, error)
}
