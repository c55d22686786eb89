package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldvine/billing/pkg/tenant"
)

// Router builds the module's route tree.
//
// The webhook endpoint is unauthenticated; its security is the gateway
// signature. Tenant routes sit behind the tenant guard, so a principal
// can only reach its own tenant's data. Admin routes require a
// super-admin principal.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/webhooks/paddle", m.handlePaddleWebhook)

	r.Route("/tenants/{tenant_id}", func(r chi.Router) {
		r.Use(tenant.Guard())

		r.Get("/subscription", m.handleGetSubscription)
		r.Get("/payments", m.handleListPayments)
		r.Get("/plan-changes", m.handleListPlanChanges)
		r.Get("/limits", m.handleGetLimits)
		r.Post("/checkout", m.handleCreateCheckout)
		r.Post("/exports", m.handleRequestExport)
		r.Get("/exports/{export_id}", m.handleGetExport)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(m.requireSuperAdmin)

		r.Post("/sync", m.handleSyncRun)
		r.Delete("/tenants/{tenant_id}", m.handleDeleteTenant)
		r.Post("/sweeps/renewal-reminders", m.handleSweepRenewalReminders)
		r.Post("/sweeps/trial-expiring", m.handleSweepTrialExpiring)
		r.Post("/sweeps/subscription-expired", m.handleSweepSubscriptionExpired)
		r.Post("/exports/retention", m.handleExportRetention)
	})

	return r
}

// requireSuperAdmin rejects requests whose principal is not a
// super-admin. Batch triggers mutate every tenant, so tenant-scoped
// principals have no business here.
func (m *Module) requireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := tenant.PrincipalFromContext(r.Context())
		if !ok {
			respond(w, http.StatusUnauthorized, jsonResponse{
				Code:  "unauthorized",
				Error: &errorDetail{Code: "unauthorized", Message: "authentication required"},
			})
			return
		}
		if !p.SuperAdmin {
			respond(w, http.StatusForbidden, jsonResponse{
				Code:  "forbidden",
				Error: &errorDetail{Code: "forbidden", Message: "super admin required"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
