// Package payment consumes payment-gateway webhooks reliably under
// at-least-once delivery.
//
// The Processor is the single entry point: it verifies the envelope
// signature (failing closed, with no ledger write), deduplicates by
// gateway event id through the event ledger, dispatches to a handler
// per event type, and acknowledges. Handler errors are recorded on the
// ledger entry and still acknowledged to the gateway; retrying would
// only replay a deterministic failure and invite a redelivery storm.
//
// Side effects of a successful payment: the Payment record is marked
// completed, the tenant's expiry extends by one billing period anchored
// at max(now, current expiry), the active flag is restored, the status
// is recomputed, and a success notification is enqueued.
//
// Gateway specifics stay behind the Gateway interface; PaddleGateway is
// the production implementation.
package payment
