// Package cache provides the TTL key-value store backing insight lookups.
// The store is constructed once at startup and handed to the components that
// need it; entries expire after their TTL and are never otherwise
// invalidated.
package cache

import (
	"context"
	"time"
)

// Store is a key-value store with per-entry time-to-live. Implementations
// must be safe for concurrent use; request handlers share one store.
type Store interface {
	// Get returns the value for key and whether it was present and live.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Backend names the implementation for logs and metrics labels.
	Backend() string
}
