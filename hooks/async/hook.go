// Package asynchook decouples Hooks sinks from the cache's hot paths with a
// bounded queue and a small worker pool. Events are dropped when the queue
// is full rather than blocking a read.
//
// usage:
//
//	raw := vmhook.New("app")               // or any Hooks implementation
//	hooks := asynchook.New(raw, 1, 1000)   // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := herdcache.New[User](herdcache.Options[User]{
//	    Master: master,
//	    Codec:  codec.JSON[User]{},
//	    Hooks:  hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"time"

	"github.com/herdcache/herdcache"
)

type Hooks struct {
	inner herdcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ herdcache.Hooks = (*Hooks)(nil)

func New(inner herdcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Hit(k string, replica bool)  { h.try(func() { h.inner.Hit(k, replica) }) }
func (h *Hooks) Miss(k string)               { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) LockAcquired(k string)       { h.try(func() { h.inner.LockAcquired(k) }) }
func (h *Hooks) LockSkipped(k string)        { h.try(func() { h.inner.LockSkipped(k) }) }
func (h *Hooks) DecodeError(k string, err error) {
	h.try(func() { h.inner.DecodeError(k, err) })
}
func (h *Hooks) LockWait(k string, waited time.Duration) {
	h.try(func() { h.inner.LockWait(k, waited) })
}
func (h *Hooks) StoreError(op, k string, err error) {
	h.try(func() { h.inner.StoreError(op, k, err) })
}
