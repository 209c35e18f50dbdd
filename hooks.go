package herdcache

import "time"

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths. Wrap with hooks/async to decouple slow sinks.
type Hooks interface {
	// A read was served. replica is true when a stale replica copy was
	// preferred over waiting for a foreign lock.
	Hit(key string, replica bool)

	// A read reported a miss (absent key, skip roll, or decode degradation).
	Miss(key string)

	// This process won the recomputation lock for key.
	LockAcquired(key string)

	// A blocked reader finished waiting for a foreign lock.
	LockWait(key string, waited time.Duration)

	// A blocked reader rolled the skip percentage and gave up waiting.
	LockSkipped(key string)

	// A stored payload failed to decode; the read degraded to a miss.
	DecodeError(key string, err error)

	// A store call failed. op is one of "get", "set", "add", "del".
	StoreError(op, key string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Hit(string, bool)                 {}
func (NopHooks) Miss(string)                      {}
func (NopHooks) LockAcquired(string)              {}
func (NopHooks) LockWait(string, time.Duration)   {}
func (NopHooks) LockSkipped(string)               {}
func (NopHooks) DecodeError(string, error)        {}
func (NopHooks) StoreError(string, string, error) {}
