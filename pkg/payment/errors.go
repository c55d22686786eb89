package payment

import "errors"

var (
	// ErrSignatureInvalid means the webhook envelope failed
	// verification. Nothing was written; the caller must answer 4xx.
	ErrSignatureInvalid = errors.New("payment.errors.invalid_webhook_signature")

	ErrPaymentNotFound     = errors.New("payment.errors.payment_not_found")
	ErrMissingDependencies = errors.New("payment.errors.missing_dependencies")
	ErrMissingTenantID     = errors.New("payment.errors.event_missing_tenant_id")
)
