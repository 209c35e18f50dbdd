package herdcache

import (
	"context"
	"time"

	c "github.com/herdcache/herdcache/codec"
	st "github.com/herdcache/herdcache/store"
)

// Cache is the high-level, store-agnostic cache API with stampede protection.
// V is the caller's value type. Serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	// Get reads key with stampede-aware semantics. A miss (ok=false) after an
	// expired entry means the caller should recompute and fill via Set or Add;
	// Get may have taken the per-key lock on the caller's behalf.
	Get(ctx context.Context, key string) (v V, ok bool, err error)

	// Set overwrites key on every server. It is gated on holding the key's
	// lock (taken by a prior Get miss); ErrNotOwner otherwise.
	Set(ctx context.Context, key string, value V, ttl time.Duration) (bool, error)

	// Add stores key only if absent, releasing any lock this process holds on
	// it first. ok=false means another writer populated the key already.
	Add(ctx context.Context, key string, value V, ttl time.Duration) (bool, error)

	// Delete removes key from every server. Lock bookkeeping is untouched.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether key is present on one randomly selected server.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases locks this process still verifiably owns, then closes
	// every server in the pool.
	Close(ctx context.Context) error
}

// Options tune the cache. Only Codec is strictly required; a pool with no
// Master is a degenerate configuration where every operation reports
// ErrUnavailable.
type Options[V any] struct {
	// Master is the single server lock sentinels are checked and written on.
	// Writes are applied to it first.
	Master st.Store
	// Replicas may serve stale reads; never used for lock-state decisions.
	Replicas []st.Store
	// Codec is required.
	Codec c.Codec[V]

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// LockTTL bounds lock sentinels on the store side. 0 disables locking
	// entirely: acquisition always fails and Get never blocks.
	LockTTL time.Duration
	// PollInterval is the sleep between lock re-checks while waiting; 0 => 100ms.
	PollInterval time.Duration
	// SkipQueuePercentage (0-100) is the chance a blocked reader abandons the
	// wait and reports a miss instead, bounding queue growth under contention.
	SkipQueuePercentage int

	// DropUnreachableReplicas probes each replica once at construction and
	// drops the ones that fail. Dropped replicas are never retried.
	DropUnreachableReplicas bool
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
