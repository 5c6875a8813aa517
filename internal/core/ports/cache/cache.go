package cache

import (
	"context"
	"time"
)

// Store is the key-value cache used for short-lived valuations and live prices.
type Store interface {
	// Get returns the cached bytes and whether a live entry existed.
	Get(ctx context.Context, key string) ([]byte, bool)

	// SetEx stores value under key for ttl.
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration)

	// DeleteByPattern removes every key matching a glob pattern (path.Match syntax).
	DeleteByPattern(ctx context.Context, pattern string) int
}
