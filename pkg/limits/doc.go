// Package limits enforces per-plan resource quotas for tenants.
//
// A Plan carries a limit table keyed by Resource, with -1 meaning
// unlimited. Stock resources (users, clients) are counted over their
// whole lifetime; flow resources (jobs, quotes) are counted within the
// current calendar month in UTC. Counting is delegated to registered
// CounterFunc implementations so the package stays storage-agnostic.
//
// The enforcer runs after the tenant guard and before the mutating
// operation it protects:
//
//	if err := enforcer.CanCreate(ctx, principal, limits.ResourceClients); err != nil {
//		var quota *limits.QuotaExceededError
//		if errors.As(err, &quota) {
//			// render upgrade prompt with quota.Current / quota.Limit / quota.Plan
//		}
//		return err
//	}
//
// Checks are optimistic check-then-act: two racing creations can both
// pass at limit-1. This window is an accepted trade-off over a
// transactional reservation.
//
// Plan tables load from an in-memory map or from a YAML file, and are
// immutable once the enforcer is constructed.
package limits
