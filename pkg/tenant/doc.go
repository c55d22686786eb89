// Package tenant binds an authenticated principal to exactly one tenant
// scope and rejects cross-tenant access.
//
// The authentication layer (outside this package) resolves credentials
// into a Principal and stores it on the request context. Guard then
// decides admissibility for tenant-scoped routes:
//
//	r.Route("/tenants/{tenant_id}", func(r chi.Router) {
//		r.Use(tenant.Guard())
//		r.Post("/clients", createClient)
//	})
//
// Guard distinguishes three rejections: no principal at all
// (ErrNotAuthenticated), an authenticated principal with no tenant
// scope (ErrNoTenant), and a request explicitly naming a tenant id
// different from the principal's (ErrTenantMismatch). The mismatch
// check compares ids before any existence lookup, so probing with
// made-up tenant ids reveals nothing.
//
// Super-admin principals bypass all three checks.
//
// The guard only decides admissibility. Scoping queries by the bound
// tenant id remains the data layer's responsibility.
package tenant
