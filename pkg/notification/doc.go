// Package notification owns customer-facing billing emails: the domain
// record, the queue handler that delivers it, and the scheduled sweeps
// that generate reminders.
//
// Every email corresponds to exactly one EmailNotification record
// created before the job is enqueued; the record id doubles as the
// queue idempotency key, so retriggering never produces a second send.
// Records also carry a dedupe key: sweeps derive it from the tenant,
// the kind, and the date, which makes a whole sweep pass safe to re-run.
//
// The send handler re-checks the record before delivering and skips
// records already in a terminal state. Transient provider failures are
// returned to the queue for backoff retry.
package notification
