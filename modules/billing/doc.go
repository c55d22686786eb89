// Package billing is the HTTP surface of the billing core: the payment
// gateway webhook, the tenant-facing subscription API and the admin
// batch triggers.
//
//	mod, err := billing.NewModule(billing.Deps{
//		Processor:    processor,
//		Tenants:      tenants,
//		Payments:     payments,
//		Synchronizer: sync,
//		Sweeper:      sweeper,
//		Exports:      exports,
//		ExportStore:  exportStore,
//		Retention:    retention,
//	})
//	if err != nil {
//		return err
//	}
//	r.Mount("/billing", mod.Router())
//
// Tenant routes sit behind tenant.Guard, so cross-tenant requests are
// rejected before any handler runs. Admin routes additionally require a
// super-admin principal. The webhook endpoint is public; the gateway
// signature is its authentication.
package billing
