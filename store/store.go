// Package store defines the key/value store abstraction used by herdcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set/SetIfAbsent for a key (no
// prepended/appended metadata, no re-encoding, no mutation). The lock
// protocol reads raw value prefixes, so any internal transform would break
// lock-state classification.
package store

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs and an atomic conditional set.
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetIfAbsent atomically stores value with ttl only when key has no value.
	// Returns ok=false when the key was already occupied. This is the
	// test-and-set the lock protocol builds mutual exclusion on.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Set stores value unconditionally. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Exists reports whether key currently holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// Prefix returns up to n leading bytes of the value at key without
	// fetching the whole value, and whether the key exists at all. A value
	// shorter than n is returned in full.
	Prefix(ctx context.Context, key string, n int) ([]byte, bool, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Pinger is an optional capability. Pool construction uses it to drop
// unreachable replicas at startup; it is never called afterwards.
type Pinger interface {
	Ping(ctx context.Context) error
}
