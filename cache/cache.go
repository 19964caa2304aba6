// Package cache implements the generic bounded TTL+LRU map spec.md §4.4
// requires, plus the five specializations the KDC and application server
// need: replay cache, AP replay cache, last-request store, session store
// and address store. The bounded-map/eviction core is hashicorp/golang-lru/v2, matching
// the "lru::LruCache" substrate of the teacher's Rust original
// (kerberos-infra/src/server/infra/cache/mod.rs); this package adds the TTL
// stamp and the distinct Missing/Expired outcomes that crate's Cache type
// also tracks.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// ErrMissingKey and ErrValueExpired are the two negative outcomes spec.md
// §4.4 names for Get; a successful Put never errors ("capacity-reached on
// insert -> silent eviction (never CacheFull in normal operation)").
var (
	ErrMissingKey   = errors.New("cache: missing key")
	ErrValueExpired = errors.New("cache: value expired")
)

type stamped[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache is a fixed-capacity, TTL-bounded map. Eviction order is strict LRU
// on access (Get refreshes recency; golang-lru's Cache already implements
// that on every successful Get/Add). All operations are serialized under a
// single writer lock per instance, per spec.md §4.4/§5.
type Cache[K comparable, V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[K, stamped[V]]
	ttl time.Duration
}

// New builds a Cache with the given capacity (>0) and time-to-live.
func New[K comparable, V any](capacity int, ttl time.Duration) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, errors.New("cache: capacity must be greater than zero")
	}
	l, err := lru.New[K, stamped[V]](capacity)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to initialize LRU store")
	}
	return &Cache[K, V]{lru: l, ttl: ttl}, nil
}

// Get returns the value for key if present and not yet expired. An expired
// entry is evicted as a side effect of the lookup, as spec.md §4.4 demands.
func (c *Cache[K, V]) Get(key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, ErrMissingKey
	}
	if time.Since(e.insertedAt) >= c.ttl {
		c.lru.Remove(key)
		return zero, ErrValueExpired
	}
	return e.value, nil
}

// Put inserts or replaces key's value, stamping the current time. If the
// cache is at capacity, golang-lru evicts the least-recently-used entry
// before the new one is inserted.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, stamped[V]{value: value, insertedAt: time.Now()})
}

// Contains reports whether key currently has a live (non-expired) entry,
// evicting it first if it has expired.
func (c *Cache[K, V]) Contains(key K) bool {
	_, err := c.Get(key)
	return err == nil
}

// ContainsThenStore performs an atomic "contains, then store" check under a
// single lock acquisition: it reports whether key was already present
// (live) before this call, and unconditionally stores value afterward. This
// is the primitive behind replay-cache "test-and-set" semantics (spec.md
// §5): two concurrent identical entries produce exactly one false (winner)
// and one true (replay).
func (c *Cache[K, V]) ContainsThenStore(key K, value V) (alreadyPresent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.lru.Get(key); ok && time.Since(e.insertedAt) < c.ttl {
		alreadyPresent = true
	} else if ok {
		c.lru.Remove(key)
	}
	c.lru.Add(key, stamped[V]{value: value, insertedAt: time.Now()})
	return alreadyPresent
}

// Len reports the number of live-or-not-yet-expired entries currently
// tracked (an expired entry only evicts itself on access, so Len is an
// upper bound on live entries).
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
