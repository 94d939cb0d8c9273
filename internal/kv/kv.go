// Package kv provides the small string key-value stores that hold a
// client's rate-limit counters.
package kv

import (
	"context"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
)

// Store is a string key-value store. Get reports found=false for a
// missing key without an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Sweeper is implemented by stores without native expiry. Sweep deletes
// keys last written before cutoff and returns how many were removed.
// Redis expires keys by TTL instead.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

// Option configures the memory and SQLite stores.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock used to stamp writes.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

func newOptions(opts []Option) options {
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
