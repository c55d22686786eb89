package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/subscription"
)

// EventType is the closed set of gateway notifications this system
// consumes. Anything else is acknowledged and logged, never retried.
type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
	EventChargeRefunded   EventType = "charge_refunded"
	EventInvoiceSucceeded EventType = "invoice_succeeded"
	EventInvoiceFailed    EventType = "invoice_failed"
)

// Known reports whether the event type is part of the consumed set.
func (t EventType) Known() bool {
	switch t {
	case EventPaymentSucceeded, EventPaymentFailed, EventChargeRefunded,
		EventInvoiceSucceeded, EventInvoiceFailed:
		return true
	}
	return false
}

// Event is a gateway notification normalized to gateway-independent
// fields. ID is the gateway's event id: globally unique and stable
// across redelivery, the sole deduplication key.
type Event struct {
	ID               string
	Type             EventType
	TenantID         uuid.UUID
	GatewayPaymentID string
	Plan             subscription.PlanID
	Amount           int64 // minor currency units
	Currency         string
	Reason           string // failure/refund reason when the gateway supplies one
	OccurredAt       time.Time
}

// Status is the lifecycle state of a Payment record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Payment is the domain record for one gateway charge. It references
// its tenant by id only, so payment history survives tenant objects
// and is queryable without loading them.
type Payment struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	EventID          string    `json:"event_id"` // last gateway event applied
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Status           Status    `json:"status"`
	Reason           *string   `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
