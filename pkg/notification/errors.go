package notification

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification.errors.notification_not_found")
	ErrNoRecipient          = errors.New("notification.errors.tenant_has_no_billing_email")
	ErrMissingDependencies  = errors.New("notification.errors.missing_dependencies")
)
