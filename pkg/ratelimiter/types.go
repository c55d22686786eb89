package ratelimiter

import "time"

// Config defines a token bucket: Capacity is the burst ceiling,
// RefillRate tokens are added every RefillInterval up to Capacity.
type Config struct {
	Capacity       int
	RefillRate     int
	RefillInterval time.Duration
}

// Result is the outcome of a single rate limit check.
type Result struct {
	Limit     int       // Bucket capacity
	Remaining int       // Tokens left after this check
	ResetAt   time.Time // When the next refill lands
}

// Allowed reports whether the check passed. Remaining goes negative
// when the request was denied.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before retrying, zero when the
// request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return time.Until(r.ResetAt)
}
