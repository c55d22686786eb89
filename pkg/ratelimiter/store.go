package ratelimiter

import (
	"context"
	"time"
)

// Store persists bucket state. Implementations must be safe for
// concurrent use.
type Store interface {
	// ConsumeTokens refills the bucket for elapsed time, then consumes
	// the requested tokens. A negative remaining count means the
	// request must be denied.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	// Reset clears the bucket state for the key.
	Reset(ctx context.Context, key string) error
}
