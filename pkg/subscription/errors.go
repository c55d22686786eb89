package subscription

import "errors"

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrStoreNil       = errors.New("tenant store cannot be nil")
	ErrInvalidPlan    = errors.New("unknown subscription plan")
	ErrTenantDeleted  = errors.New("tenant is soft-deleted")
)
