package herdcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"

	st "github.com/herdcache/herdcache/store"
)

// The lock sentinel occupies value position at the locked key: a fixed tag
// followed by a random token identifying the acquiring call. NUL framing
// keeps the tag out of the space of serialized payloads.
const (
	lockTag      = "\x00herd:lock\x00"
	lockTokenLen = 32 // hex chars
	lockPeekLen  = len(lockTag) + lockTokenLen
)

// lockState classifies what the master currently holds at a key.
type lockState int

const (
	lockNone      lockState = iota // ordinary cached data (or unrelated bytes)
	lockNotExists                  // no value at all on master
	lockOwned                      // sentinel with the token we supplied
	lockForeign                    // sentinel with a different (or unknown) token
)

func (s lockState) String() string {
	switch s {
	case lockNone:
		return "not_locked"
	case lockNotExists:
		return "not_exists"
	case lockOwned:
		return "owned"
	case lockForeign:
		return "foreign"
	}
	return "unknown"
}

// newLockToken derives a fresh token from the key, the current time and a
// random salt. Only uniqueness matters; the hash keeps the token fixed-width.
func newLockToken(key string) string {
	sum := sha256.Sum256([]byte(key + "|" + strconv.FormatInt(time.Now().UnixNano(), 10) + "|" + uuid.NewString()))
	return hex.EncodeToString(sum[:lockTokenLen/2])
}

// classify reads the sentinel-sized value prefix on the master only.
// token may be empty, in which case lockOwned is never returned.
func (c *cache[V]) classify(ctx context.Context, key, token string) (lockState, error) {
	b, ok, err := c.pool.master().Prefix(ctx, key, lockPeekLen)
	if err != nil {
		return lockNone, err
	}
	if !ok {
		return lockNotExists, nil
	}
	if len(b) < lockPeekLen || string(b[:len(lockTag)]) != lockTag {
		return lockNone, nil
	}
	if token != "" && string(b[len(lockTag):lockPeekLen]) == token {
		return lockOwned, nil
	}
	return lockForeign, nil
}

// acquireLock tries to claim the key on the master with a conditional set.
// On success the key->token pair is recorded in process-local bookkeeping.
// LockTTL == 0 is the configured "locking disabled" mode: always fails.
func (c *cache[V]) acquireLock(ctx context.Context, key string) (bool, error) {
	if c.lockTTL <= 0 {
		return false, nil
	}
	if c.pool.empty() {
		return false, ErrUnavailable
	}
	token := newLockToken(key)
	ok, err := c.pool.master().SetIfAbsent(ctx, key, []byte(lockTag+token), c.lockTTL)
	if err != nil {
		return false, err
	}
	if ok {
		c.owned.Store(key, token)
		c.hooks.LockAcquired(key)
		c.log.Debug("lock acquired", Fields{"key": key})
	}
	return ok, nil
}

// releaseLock deletes the lock for key from all servers, but only after
// re-verifying against the master that this process still owns it. A lock
// that expired and was re-acquired by someone else must never be deleted
// from under them; the stale local entry is dropped either way.
func (c *cache[V]) releaseLock(ctx context.Context, key string) (bool, error) {
	token, ok := c.owned.Load(key)
	if !ok {
		return false, nil // nothing to release, no store mutation
	}
	stt, err := c.classify(ctx, key, token)
	if err != nil {
		return false, err
	}
	if stt != lockOwned {
		c.owned.Delete(key)
		c.log.Debug("lock no longer ours, skipping delete", Fields{"key": key, "state": stt.String()})
		return false, nil
	}
	if err := c.pool.fanOut(func(s st.Store) error { return s.Del(ctx, key) }); err != nil {
		return false, err
	}
	c.owned.Delete(key)
	return true, nil
}

// waitUnlock polls the master at the configured interval until the key stops
// being foreign-locked. The lock's own TTL bounds the wait on the store
// side; ctx is the caller's bound on this side.
func (c *cache[V]) waitUnlock(ctx context.Context, key string) error {
	start := time.Now()
	t := time.NewTicker(c.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		stt, err := c.classify(ctx, key, "")
		if err != nil {
			return err
		}
		if stt != lockForeign {
			c.hooks.LockWait(key, time.Since(start))
			return nil
		}
	}
}
