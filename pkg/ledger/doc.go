// Package ledger records every inbound payment-gateway notification and
// its processing outcome, keyed by the gateway's event id.
//
// The ledger is what turns an at-least-once webhook stream into
// logically-once processing: InsertOrGet is atomic, so two racing
// deliveries of the same event id resolve to a single processing run,
// and a redelivered event that is already marked processed is
// acknowledged without re-running its handler.
package ledger
