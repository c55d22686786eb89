package ledger

import "time"

// Entry is the durable record of one inbound gateway notification. The
// EventID comes from the external gateway and is the sole deduplication
// key: it must be globally unique and stable across redelivery.
//
// An entry is written before any side effect runs and marked processed
// only after the handler completes or permanently fails, so a crash
// mid-handler leaves a recoverable "seen but not completed" row.
type Entry struct {
	EventID     string     `json:"event_id"`
	EventType   string     `json:"event_type"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	ReceivedAt  time.Time  `json:"received_at"`
}
