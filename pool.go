package herdcache

import (
	"context"
	"math/rand"
	"sync"

	st "github.com/herdcache/herdcache/store"
)

// pool holds the master (index 0 of servers) and the replica set, plus one
// pre-shuffled index permutation per selection scope. Shuffling happens once
// at construction; each cursor advances modulo its permutation independently,
// giving round-robin-via-randomization reads without a shared counter.
type pool struct {
	servers  []st.Store // master first, then replicas in pool order
	replicas []st.Store

	mu       sync.Mutex
	allOrder []int
	allPos   int
	repOrder []int
	repPos   int
}

// newPool builds the pool. A nil master degrades to an empty pool: lock-state
// decisions need a master, so a master-less configuration is "unavailable"
// rather than half-working. Replicas are optionally probed once and dropped
// on failure, never to be retried.
func newPool(ctx context.Context, master st.Store, replicas []st.Store, dropUnreachable bool, log Logger) *pool {
	p := &pool{}
	if master == nil {
		return p
	}

	kept := make([]st.Store, 0, len(replicas))
	for i, r := range replicas {
		if r == nil {
			continue
		}
		if dropUnreachable {
			if pg, ok := r.(st.Pinger); ok {
				if err := pg.Ping(ctx); err != nil {
					log.Warn("dropping unreachable replica", Fields{"replica": i, "err": err})
					continue
				}
			}
		}
		kept = append(kept, r)
	}

	p.servers = append(p.servers, master)
	p.servers = append(p.servers, kept...)
	p.replicas = kept
	p.allOrder = rand.Perm(len(p.servers))
	p.repOrder = rand.Perm(len(p.replicas))
	return p
}

func (p *pool) empty() bool { return len(p.servers) == 0 }

func (p *pool) master() st.Store { return p.servers[0] }

func (p *pool) hasReplicas() bool { return len(p.replicas) > 0 }

// selectRead returns the next server from the all-servers permutation.
func (p *pool) selectRead() st.Store {
	p.mu.Lock()
	i := p.allOrder[p.allPos]
	p.allPos = (p.allPos + 1) % len(p.allOrder)
	p.mu.Unlock()
	return p.servers[i]
}

// selectReadReplica is selectRead restricted to the replica subset; with no
// replicas it falls back to the full pool.
func (p *pool) selectReadReplica() st.Store {
	if len(p.replicas) == 0 {
		return p.selectRead()
	}
	p.mu.Lock()
	i := p.repOrder[p.repPos]
	p.repPos = (p.repPos + 1) % len(p.repOrder)
	p.mu.Unlock()
	return p.replicas[i]
}

// fanOut applies fn to every server, master first then replicas in pool
// order, and returns only the last server's error. Replica failures are
// best-effort by contract: the master is applied first and is the server
// most likely to fail fast on misconfiguration.
func (p *pool) fanOut(fn func(st.Store) error) error {
	var last error
	for _, s := range p.servers {
		last = fn(s)
	}
	return last
}

// fanOutCond is fanOut for conditional writes; the last server's (ok, err)
// pair is the reported result.
func (p *pool) fanOutCond(fn func(st.Store) (bool, error)) (bool, error) {
	var (
		ok   bool
		last error
	)
	for _, s := range p.servers {
		ok, last = fn(s)
	}
	return ok, last
}

// closeAll closes every server, returning each failure.
func (p *pool) closeAll(ctx context.Context) []error {
	var errs []error
	for _, s := range p.servers {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
