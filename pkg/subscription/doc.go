// Package subscription derives tenant access state from raw billing
// facts and keeps it in sync.
//
// The heart of the package is CalculateStatus, a pure function mapping
// (expiry, active flag, plan, soft-delete marker) to one of six closed
// statuses. The Synchronizer applies it across all live tenants in
// batch, persisting only real transitions through compare-and-set
// writes so it can run concurrently with the webhook path.
//
// Example:
//
//	store := subscription.NewMemoryStore()
//	sync, _ := subscription.NewSynchronizer(store)
//	res, err := sync.Run(ctx)
//	if err != nil {
//		// handle error
//	}
//	log.Printf("checked %d tenants, updated %d", res.Total, res.Updated)
package subscription
