package tenant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvine/billing/pkg/tenant"
)

func routeWithGuard(p *tenant.Principal) (*chi.Mux, *bool) {
	reached := false

	r := chi.NewRouter()
	if p != nil {
		principal := *p
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(tenant.WithPrincipal(req.Context(), principal)))
			})
		})
	}
	r.Route("/tenants/{tenant_id}", func(r chi.Router) {
		r.Use(tenant.Guard())
		r.Get("/clients", func(w http.ResponseWriter, req *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		})
	})

	return r, &reached
}

func TestGuard_BoundTenantPasses(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	router, reached := routeWithGuard(&tenant.Principal{TenantID: id, Role: tenant.RoleOwner})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+id.String()+"/clients", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
}

func TestGuard_Unauthenticated(t *testing.T) {
	t.Parallel()

	router, reached := routeWithGuard(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+uuid.NewString()+"/clients", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestGuard_NoTenantScope(t *testing.T) {
	t.Parallel()

	router, reached := routeWithGuard(&tenant.Principal{Role: tenant.RoleManager})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+uuid.NewString()+"/clients", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
	assert.Contains(t, rec.Body.String(), tenant.ErrNoTenant.Error())
}

func TestGuard_MismatchRejectedEvenForUnknownTenant(t *testing.T) {
	t.Parallel()

	router, reached := routeWithGuard(&tenant.Principal{TenantID: uuid.New()})

	// The named tenant id was never created anywhere; rejection must
	// not depend on existence.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+uuid.NewString()+"/clients", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, *reached)
	assert.Contains(t, rec.Body.String(), tenant.ErrTenantMismatch.Error())
}

func TestGuard_SuperAdminBypassesMismatch(t *testing.T) {
	t.Parallel()

	router, reached := routeWithGuard(&tenant.Principal{SuperAdmin: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+uuid.NewString()+"/clients", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
}

func TestGuard_HeaderMismatch(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := tenant.WithPrincipal(req.Context(), tenant.Principal{TenantID: id})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.With(tenant.Guard()).Get("/me", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Tenant-ID", uuid.NewString())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuard_QueryMismatch(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := tenant.WithPrincipal(req.Context(), tenant.Principal{TenantID: id})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.With(tenant.Guard()).Get("/payments", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/payments?tenant_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/payments?tenant_id="+id.String(), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := tenant.PrincipalFromContext(ctx)
	require.False(t, ok)

	id := uuid.New()
	ctx = tenant.WithPrincipal(ctx, tenant.Principal{TenantID: id})

	p, ok := tenant.PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, p.TenantID)

	got, ok := tenant.IDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)

	attr, ok := tenant.LoggerExtractor()(ctx)
	require.True(t, ok)
	assert.Equal(t, "tenant_id", attr.Key)
}
