// Package local implements store.Store in-process. It backs the package
// tests and works as an embedded single-server pool for code that wants the
// herdcache semantics without a network store.
package local

import (
	"context"
	"sync"
	"time"

	st "github.com/herdcache/herdcache/store"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// Store is a mutex-guarded map with per-entry expiry. SetIfAbsent is atomic
// under the mutex, which is all the lock protocol needs from it.
type Store struct {
	mu sync.RWMutex
	m  map[string]entry
}

var _ st.Store = (*Store)(nil)

func New() *Store {
	return &Store{m: make(map[string]entry)}
}

// get returns the live entry, lazily dropping an expired one.
// Caller must not hold the lock.
func (s *Store) get(key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		s.mu.Lock()
		// re-check under the write lock; the entry may have been replaced
		if cur, ok := s.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.v, true
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.get(key)
	return v, ok, nil
}

func (s *Store) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[key]; ok && (e.exp.IsZero() || now.Before(e.exp)) {
		return false, nil
	}
	s.m[key] = entry{v: value, exp: expiry(now, ttl)}
	return true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.m[key] = entry{v: value, exp: expiry(time.Now(), ttl)}
	s.mu.Unlock()
	return nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.get(key)
	return ok, nil
}

func (s *Store) Prefix(_ context.Context, key string, n int) ([]byte, bool, error) {
	v, ok := s.get(key)
	if !ok {
		return nil, false, nil
	}
	if n > len(v) {
		n = len(v)
	}
	if n < 0 {
		n = 0
	}
	return v[:n:n], true, nil
}

func (s *Store) Close(context.Context) error { return nil }

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl > 0 {
		return now.Add(ttl)
	}
	return time.Time{}
}
