// Package cache stores rendered artifacts keyed by the request that produced
// them.
//
// Chart specs and pages are pure functions of a request, so identical
// requests can reuse earlier output. Datasets are random and never cached.
//
// Three backends are provided: [FileCache] for the CLI (under the user's cache
// directory), [RedisCache] for the server and [NullCache] to disable caching.
// Keys come from a [Keyer].
package cache

import (
	"context"
	"time"
)

// TTLs for cached artifacts.
const (
	TTLSpec = 7 * 24 * time.Hour
	TTLPage = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
