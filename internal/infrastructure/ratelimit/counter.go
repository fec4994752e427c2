// Package ratelimit provides fixed-window request counters shared by the
// HTTP rate limiting middleware.
package ratelimit

import (
	"context"
	"time"
)

// Counter counts hits per key within fixed windows.
type Counter interface {
	// Incr records one hit for key and returns the number of hits in the
	// current window together with the time the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
	Close() error
}
