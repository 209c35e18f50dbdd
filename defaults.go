package herdcache

import "time"

// defaultPollInterval is the sleep between lock re-checks while a reader
// waits for a foreign lock to clear.
const defaultPollInterval = 100 * time.Millisecond

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
