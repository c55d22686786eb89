package tenant

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ErrorHandler writes the rejection response for a guard failure.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ExplicitIDExtractor returns the tenant id a request explicitly names,
// or "" when it names none.
type ExplicitIDExtractor func(r *http.Request) string

type guardConfig struct {
	errorHandler ErrorHandler
	extractID    ExplicitIDExtractor
}

// GuardOption configures the Guard middleware.
type GuardOption func(*guardConfig)

// WithErrorHandler replaces the default JSON rejection writer.
func WithErrorHandler(h ErrorHandler) GuardOption {
	return func(cfg *guardConfig) {
		if h != nil {
			cfg.errorHandler = h
		}
	}
}

// WithExplicitIDExtractor replaces how the explicitly named tenant id
// is read from the request.
func WithExplicitIDExtractor(fn ExplicitIDExtractor) GuardOption {
	return func(cfg *guardConfig) {
		if fn != nil {
			cfg.extractID = fn
		}
	}
}

// Guard returns middleware enforcing tenant isolation. Requests pass
// when the principal is a super-admin, or is bound to a tenant and the
// request names no other tenant.
func Guard(opts ...GuardOption) func(http.Handler) http.Handler {
	cfg := &guardConfig{
		errorHandler: defaultErrorHandler,
		extractID:    defaultExplicitID,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				cfg.errorHandler(w, r, ErrNotAuthenticated)
				return
			}

			if p.SuperAdmin {
				next.ServeHTTP(w, r)
				return
			}

			if !p.HasTenant() {
				cfg.errorHandler(w, r, ErrNoTenant)
				return
			}

			// Compare ids before any lookup: a mismatch is rejected
			// even when the named tenant does not exist.
			if explicit := cfg.extractID(r); explicit != "" && explicit != p.TenantID.String() {
				cfg.errorHandler(w, r, ErrTenantMismatch)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// defaultExplicitID reads the tenant id from the chi route parameter,
// then the tenant_id query parameter, then the X-Tenant-ID header.
// Body fields are not inspected here; handlers that accept a tenant id
// in the payload must compare it against the principal themselves.
func defaultExplicitID(r *http.Request) string {
	if id := chi.URLParam(r, "tenant_id"); id != "" {
		return id
	}
	if id := r.URL.Query().Get("tenant_id"); id != "" {
		return id
	}
	return r.Header.Get("X-Tenant-ID")
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusForbidden
	if err == ErrNotAuthenticated {
		status = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
