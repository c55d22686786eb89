package ratelimiter

import "errors"

var (
	// ErrInvalidConfig indicates a bucket configuration that cannot work.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTokenCount indicates a non-positive token request.
	ErrInvalidTokenCount = errors.New("invalid token count")
)
