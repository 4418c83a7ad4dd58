// Package limiter provides login attempt throttling with temporary lockouts.
package limiter

import (
	"context"
	"time"
)

// Limiter tracks failed login attempts per (user name, client IP) and blocks
// further attempts once a threshold is crossed inside a sliding window.
type Limiter interface {
	// Allow reports whether a login attempt is currently permitted, with an
	// optional retry-after duration when it is not.
	Allow(ctx context.Context, userName string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, userName string, ipHash []byte) error
	// Failure records a failed attempt and reports whether a block was placed.
	Failure(ctx context.Context, userName string, ipHash []byte) (bool, time.Duration, error)
}
