package cache

import "sync"

// Cache is a generic mutex-guarded cache with an optional soft limit.
// When the cache exceeds softLimit, least recently used entries are
// evicted. A softLimit of 0 disables eviction entirely, which is what
// the program cache relies on: compiled shader programs must stay
// resident for the lifetime of the renderer instance.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*entry[V]
	softLimit int
	tick      int64 // Monotonic access counter
}

// entry holds a cached value with its access time.
type entry[V any] struct {
	value V
	atime int64 // Access time (tick value)
}

// New creates a new cache with the given soft limit.
// A softLimit of 0 means unlimited.
func New[K comparable, V any](softLimit int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*entry[V]),
		softLimit: softLimit,
	}
}

// Get retrieves a value from the cache.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.tick++
	e.atime = c.tick
	return e.value, true
}

// Set stores a value in the cache.
// If the cache exceeds softLimit after insertion, oldest entries are evicted.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	c.entries[key] = &entry[V]{value: value, atime: c.tick}

	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}
}

// GetOrCreate returns the cached value for key, calling create to build
// it on a miss. create runs under the cache lock, so two callers can
// never build the same entry twice: identical keys always resolve to
// the same instance.
//
// If create fails, nothing is stored and the error is returned, so a
// later call with the same key retries the build.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.tick++
		e.atime = c.tick
		return e.value, nil
	}

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}

	c.tick++
	c.entries[key] = &entry[V]{value: value, atime: c.tick}

	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}

	return value, nil
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		return true
	}
	return false
}

// Range calls fn for every entry in the cache, in unspecified order.
// The renderer uses this to release GPU resources held by cached
// values on destroy and resize. fn must not call back into the cache.
func (c *Cache[K, V]) Range(fn func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		fn(k, e.value)
	}
}

// Clear removes all entries from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[V])
	c.tick = 0
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// evictOldest removes entries until under softLimit.
// Caller must hold c.mu.
func (c *Cache[K, V]) evictOldest() {
	targetSize := c.softLimit * 3 / 4
	if targetSize < 1 {
		targetSize = 1
	}

	toEvict := len(c.entries) - targetSize
	if toEvict <= 0 {
		return
	}

	type aged struct {
		key   K
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for key, e := range c.entries {
		all = append(all, aged{key: key, atime: e.atime})
	}

	// Selection sort on the eviction prefix - good enough for small batches.
	for i := 0; i < toEvict && i < len(all); i++ {
		minIdx := i
		for j := i + 1; j < len(all); j++ {
			if all[j].atime < all[minIdx].atime {
				minIdx = j
			}
		}
		if minIdx != i {
			all[i], all[minIdx] = all[minIdx], all[i]
		}
		delete(c.entries, all[i].key)
	}
}
