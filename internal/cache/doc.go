// Package cache provides a generic in-memory cache used for renderer
// resources: compiled shader programs (unbounded, renderer lifetime)
// and pooled render textures (soft-limited, LRU evicted).
package cache
