package tenant

import "errors"

var (
	// ErrNotAuthenticated means no principal is present on the request.
	ErrNotAuthenticated = errors.New("tenant.errors.not_authenticated")

	// ErrNoTenant means the principal is authenticated but carries no
	// tenant scope.
	ErrNoTenant = errors.New("tenant.errors.no_tenant_scope")

	// ErrTenantMismatch means the request explicitly named a tenant id
	// different from the principal's bound tenant.
	ErrTenantMismatch = errors.New("tenant.errors.tenant_mismatch")
)
