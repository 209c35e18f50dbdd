// Package herdcache is a cache-access layer in front of one master key/value
// store and zero or more read replicas. It adds two things the underlying
// store lacks: randomized load distribution of reads across the pool, and
// stampede protection - when a hot key expires, exactly one caller wins a
// per-key lock and recomputes while concurrent callers wait briefly, serve a
// stale replica copy, or degrade to an independent miss.
//
// Components:
//   - store.Store: the byte store with TTLs (Redis via store/redis, or the
//     in-process store/local).
//   - Codec[V]: (de)serializes V <-> []byte; codec.Compressed adds a
//     transparent gzip envelope above a size threshold.
//   - Pool: master + replicas with pre-shuffled read cursors; writes fan out
//     to every server, master first.
//
// Lock protocol:
//
// A miss on the master is claimed by writing a tagged sentinel (tag + random
// token) in value position with a conditional set and a TTL. While the
// sentinel is present no cache entry can coexist at that key, which is
// exactly the mutual exclusion a recomputation needs. The winning caller
// fills the key with Set (lock-gated) or Add; everyone else classifies the
// key's value prefix on the master and reacts:
//
//	key absent          -> try to take the lock, report miss
//	prefix not a tag    -> ordinary data, read from any server
//	tag, foreign token  -> stale replica read, skip roll, or poll
//
// Crash of a lock holder is covered by the lock TTL only; Close releases
// locks this process still verifiably owns.
package herdcache
