// Package vmhook exposes cache events as VictoriaMetrics counters. Counters
// are cheap enough to update inline; no async wrapper is needed.
package vmhook

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/herdcache/herdcache"
)

type Hooks struct {
	hits      *metrics.Counter
	stale     *metrics.Counter
	misses    *metrics.Counter
	acquired  *metrics.Counter
	skipped   *metrics.Counter
	decodeErr *metrics.Counter
	storeErr  *metrics.Counter
	waitHist *metrics.Histogram
}

var _ herdcache.Hooks = (*Hooks)(nil)

// New registers counters in the default metrics set under the given
// namespace, e.g. herdcache_hits_total{ns="app"}.
func New(namespace string) *Hooks {
	c := func(name string) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`herdcache_%s_total{ns=%q}`, name, namespace))
	}
	return &Hooks{
		hits:      c("hits"),
		stale:     c("stale_hits"),
		misses:    c("misses"),
		acquired:  c("locks_acquired"),
		skipped:   c("lock_skips"),
		decodeErr: c("decode_errors"),
		storeErr:  c("store_errors"),
		waitHist: metrics.GetOrCreateHistogram(fmt.Sprintf(`herdcache_lock_wait_seconds{ns=%q}`, namespace)),
	}
}

func (h *Hooks) Hit(_ string, replica bool) {
	h.hits.Inc()
	if replica {
		h.stale.Inc()
	}
}
func (h *Hooks) Miss(string)               { h.misses.Inc() }
func (h *Hooks) LockAcquired(string)       { h.acquired.Inc() }
func (h *Hooks) LockSkipped(string)        { h.skipped.Inc() }
func (h *Hooks) DecodeError(string, error) { h.decodeErr.Inc() }
func (h *Hooks) StoreError(string, string, error) {
	h.storeErr.Inc()
}
func (h *Hooks) LockWait(_ string, waited time.Duration) {
	h.waitHist.Update(waited.Seconds())
}
