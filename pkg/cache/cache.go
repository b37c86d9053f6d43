// Package cache provides pluggable byte-level caching for HTTP responses.
//
// Three backends are available:
//   - FileCache: per-host on-disk cache for CLI usage
//   - RedisCache: shared cache for multi-instance deployments
//   - NullCache: caching disabled (tests, --no-cache)
//
// Keys are namespaced by the caller (e.g. "npm:left-pad") and hashed
// before touching a backend, so arbitrary key content is safe.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrCacheMiss is returned by helpers that require a hit when an item is
// not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the interface implemented by all cache backends.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
