package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of billing email kinds.
type Kind string

const (
	KindPaymentSucceeded    Kind = "payment_succeeded"
	KindPaymentFailed       Kind = "payment_failed"
	KindTrialExpiring       Kind = "trial_expiring"
	KindSubscriptionExpired Kind = "subscription_expired"
	KindRenewalReminder     Kind = "renewal_reminder"
)

// Status is the delivery state of a notification record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the record must not be delivered again.
func (s Status) Terminal() bool {
	return s == StatusSent
}

// EmailNotification is the domain record behind one email job. The
// queue references it by id; the job payload carries nothing else.
type EmailNotification struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	Kind      Kind       `json:"kind"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject"`
	BodyHTML  string     `json:"body_html"`
	DedupeKey string     `json:"dedupe_key"`
	Status    Status     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Error     *string    `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SweepDedupeKey builds the dedupe key for sweep-generated records:
// one record per tenant, kind, and calendar day.
func SweepDedupeKey(tenantID uuid.UUID, kind Kind, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", kind, tenantID, day.UTC().Format("2006-01-02"))
}
