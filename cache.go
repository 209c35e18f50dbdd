package herdcache

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	c "github.com/herdcache/herdcache/codec"
	st "github.com/herdcache/herdcache/store"
)

type cache[V any] struct {
	pool  *pool
	codec c.Codec[V]
	log   Logger
	hooks Hooks

	lockTTL      time.Duration
	pollInterval time.Duration
	skipPct      int

	// process-local lock ownership: key -> token. Never shared across
	// processes; ownership on the store side is carried by the token alone.
	owned *xsync.MapOf[string, string]
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("herdcache: codec is required")
	}
	if opts.SkipQueuePercentage < 0 || opts.SkipQueuePercentage > 100 {
		return nil, fmt.Errorf("herdcache: skip queue percentage %d out of range [0,100]", opts.SkipQueuePercentage)
	}

	cc := &cache[V]{
		codec:   opts.Codec,
		lockTTL: opts.LockTTL,
		skipPct: opts.SkipQueuePercentage,
		owned:   xsync.NewMapOf[string, string](),
	}

	// defaults
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.pollInterval = coalesce[time.Duration](opts.PollInterval, defaultPollInterval)

	cc.pool = newPool(context.Background(), opts.Master, opts.Replicas, opts.DropUnreachableReplicas, cc.log)
	return cc, nil
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if c.pool.empty() {
		return zero, false, ErrUnavailable
	}
	if c.lockTTL <= 0 {
		// stampede protection disabled: a plain load-balanced read
		return c.readFrom(ctx, c.pool.selectRead(), key, false)
	}

	stt, err := c.classify(ctx, key, "")
	if err != nil {
		return zero, false, err
	}
	switch stt {
	case lockNone:
		return c.readFrom(ctx, c.pool.selectRead(), key, false)

	case lockNotExists:
		// claim the recomputation; the miss tells the caller to compute.
		if _, err := c.acquireLock(ctx, key); err != nil {
			c.log.Warn("lock acquire failed on miss", Fields{"key": key, "err": err})
		}
		c.hooks.Miss(key)
		return zero, false, nil

	default: // lockForeign
		if c.pool.hasReplicas() {
			// read-your-slack: a stale replica copy beats waiting
			r := c.pool.selectReadReplica()
			if ok, err := r.Exists(ctx, key); err == nil && ok {
				return c.readFrom(ctx, r, key, true)
			}
		}
		if c.skipPct > 0 && rand.Intn(100) < c.skipPct {
			c.hooks.LockSkipped(key)
			c.hooks.Miss(key)
			return zero, false, nil
		}
		if err := c.waitUnlock(ctx, key); err != nil {
			return zero, false, err
		}
		return c.readFrom(ctx, c.pool.selectRead(), key, false)
	}
}

// readFrom reads and decodes key from one server. A decode failure degrades
// to a miss: the bytes may be a sentinel written after classification, so
// unlike a corrupt ordinary entry they must not be deleted from here.
func (c *cache[V]) readFrom(ctx context.Context, s st.Store, key string, replica bool) (V, bool, error) {
	var zero V
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		c.hooks.StoreError("get", key, err)
		return zero, false, err
	}
	if !ok {
		c.hooks.Miss(key)
		return zero, false, nil
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		c.hooks.DecodeError(key, err)
		c.log.Warn("decode failed, treating as miss", Fields{"key": key, "err": err})
		return zero, false, nil
	}
	c.hooks.Hit(key, replica)
	return v, true, nil
}

// Set is the lock-gated overwrite: only the caller that took the key's lock
// on a prior miss may fill it. The fan-out SET replaces the sentinel on the
// master with real data, which is what ends the stampede window.
func (c *cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) (bool, error) {
	if c.pool.empty() {
		return false, ErrUnavailable
	}
	if _, ok := c.owned.Load(key); !ok {
		return false, ErrNotOwner
	}
	raw, err := c.codec.Encode(value)
	if err != nil {
		return false, err
	}
	c.owned.Delete(key)
	if err := c.pool.fanOut(func(s st.Store) error { return s.Set(ctx, key, raw, ttl) }); err != nil {
		c.hooks.StoreError("set", key, err)
		return false, err
	}
	return true, nil
}

// Add populates key only if absent, releasing any lock this process holds on
// it first. It tolerates the race where another writer filled the key in the
// meantime: the conditional set then reports false and the first value wins.
func (c *cache[V]) Add(ctx context.Context, key string, value V, ttl time.Duration) (bool, error) {
	if c.pool.empty() {
		return false, ErrUnavailable
	}
	raw, err := c.codec.Encode(value)
	if err != nil {
		return false, err
	}
	if _, held := c.owned.Load(key); held {
		if _, err := c.releaseLock(ctx, key); err != nil {
			c.log.Warn("lock release before add failed", Fields{"key": key, "err": err})
		}
	}
	ok, err := c.pool.fanOutCond(func(s st.Store) (bool, error) {
		return s.SetIfAbsent(ctx, key, raw, ttl)
	})
	if err != nil {
		c.hooks.StoreError("add", key, err)
	}
	return ok, err
}

func (c *cache[V]) Delete(ctx context.Context, key string) (bool, error) {
	if c.pool.empty() {
		return false, ErrUnavailable
	}
	if err := c.pool.fanOut(func(s st.Store) error { return s.Del(ctx, key) }); err != nil {
		c.hooks.StoreError("del", key, err)
		return false, err
	}
	return true, nil
}

func (c *cache[V]) Exists(ctx context.Context, key string) (bool, error) {
	if c.pool.empty() {
		return false, ErrUnavailable
	}
	return c.pool.selectRead().Exists(ctx, key)
}

// Close reclaims locks this process still owns, then closes every server.
// Only keys the master still reports as ours are actively deleted; anything
// else expired or changed hands and is left untouched.
func (c *cache[V]) Close(ctx context.Context) error {
	te := &TeardownError{}
	c.owned.Range(func(key, _ string) bool {
		if _, err := c.releaseLock(ctx, key); err != nil {
			te.ReleaseErrs = append(te.ReleaseErrs, fmt.Errorf("release %q: %w", key, err))
		}
		return true
	})
	te.CloseErrs = c.pool.closeAll(ctx)
	if te.empty() {
		return nil
	}
	return te
}
