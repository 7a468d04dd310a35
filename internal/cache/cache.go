package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is a process-wide TTL memoization layer keyed by string. Entries
// expire by elapsed time only; there is no size-based eviction at this
// scale (dozens of keys, small payloads). Concurrent callers for a missing
// key converge on a single compute.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group
	now     func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New creates an empty store.
func New[V any]() *Store[V] {
	return &Store[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and not expired. An
// expired entry is deleted on the way out.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		// Recheck under the write lock: a concurrent compute may have
		// refreshed the entry since the read.
		if cur, ok := s.entries[key]; ok && s.now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// its result for ttl. At most one compute runs per key at a time; waiters
// share its result. An error from compute is returned to all waiters and
// nothing is cached.
func (s *Store[V]) GetOrCompute(key string, ttl time.Duration, compute func() (V, error)) (V, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		// A concurrent caller may have populated the entry while this one
		// waited on the flight group.
		if v, ok := s.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		s.set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate removes key from the store.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of stored entries. An expired entry lingers only
// until the next Get for its key.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store[V]) set(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry[V]{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}
