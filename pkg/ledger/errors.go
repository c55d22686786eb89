package ledger

import "errors"

var (
	// ErrEntryNotFound is returned when no entry exists for an event id.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrEmptyEventID is returned when an event arrives without an id.
	ErrEmptyEventID = errors.New("event id cannot be empty")
)
