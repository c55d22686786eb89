// Package export generates tenant data exports as ZIP archives of CSV
// datasets.
//
// An export moves through pending, completed and expired. Request
// creates the record and enqueues a generation job keyed by the record
// id; the Generator worker collects every registered dataset, writes
// one CSV per dataset into a ZIP, stores it through the file backend
// and stamps the record with a download URL and an expiry. Records in a
// terminal state are never regenerated, so duplicate jobs are harmless.
//
// The Retention job deletes artifacts past their expiry and flips the
// records to expired. Records are kept for audit; only the artifact and
// its URL go away.
package export
