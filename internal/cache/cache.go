// Package cache holds upstream response bodies keyed by request URL.
package cache

import (
	"context"
	"time"
)

// Cache is the contract the memory and Valkey backends satisfy.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Purger is implemented by backends that need explicit expiry sweeps.
type Purger interface {
	Purge() int
}
