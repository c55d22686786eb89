// Package ratelimiter provides a token bucket rate limiter backed by a
// pluggable store.
//
// Its primary consumer is the job worker, which uses a shared bucket as
// a dispatch ceiling for outbound providers: several workers sending
// through the same email provider consume from one keyed bucket, so the
// provider's per-second limit holds across the fleet.
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     10,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := limiter.Allow(ctx, "postmark")
//	if err != nil {
//		return err
//	}
//	if !res.Allowed() {
//		time.Sleep(res.RetryAfter())
//	}
//
// The in-memory store suits single-process deployments and tests. A
// shared backend implementing Store lets multiple processes coordinate.
package ratelimiter
