// Package ratelimit provides a fixed-window request limiter with swappable
// stores: an in-process map for single-instance deployments and Redis for
// multi-instance ones.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	OK        bool
	Remaining int
	// Reset is when the current window expires; drives the Retry-After hint.
	Reset time.Time
}

// Limiter admits or rejects a keyed request within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RetryAfter returns the whole seconds (minimum 1) until the window resets.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(d.Reset.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
