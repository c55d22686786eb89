package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Role is the principal's role within its tenant. The guard does not
// interpret roles; they ride along for downstream authorization.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
)

// Principal is the request identity established by the authentication
// layer. TenantID is uuid.Nil for principals without a tenant scope.
type Principal struct {
	UserID     uuid.UUID `json:"user_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	SuperAdmin bool      `json:"super_admin"`
	Role       Role      `json:"role"`
}

// HasTenant reports whether the principal is bound to a tenant.
func (p Principal) HasTenant() bool {
	return p.TenantID != uuid.Nil
}

type principalCtxKey struct{}

// WithPrincipal stores the principal on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext retrieves the principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// IDFromContext retrieves the bound tenant id from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || !p.HasTenant() {
		return uuid.UUID{}, false
	}
	return p.TenantID, true
}

// LoggerExtractor returns a logger context extractor that adds the
// bound tenant id to every log record in a guarded request.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
