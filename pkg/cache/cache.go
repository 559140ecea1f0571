// Package cache provides the byte-level cache shared by the geocoder and
// map-data clients.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entries under a directory, for the CLI (CACHE_DIR)
//   - [RedisCache]: a shared cache for server deployments
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that geocode lookups and provider
// queries never collide.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional TTL.
type Cache interface {
	// Get returns the value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs for cached lookups.
const (
	TTLGeocode  = 30 * 24 * time.Hour
	TTLFeatures = 7 * 24 * time.Hour
)
