// Package cache provides a thread-safe generic map plus the process-wide caches of
// rendered bodies, syntax CSS and public page ETags.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

// Update replaces the value of key with fn(current, present) under the write lock.
func (c *Cache[K, V]) Update(key K, fn func(V, bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.items[key]
	next := fn(cur, ok)
	c.items[key] = next
	return next
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

// Rendered bodies are keyed by the content hash of their source.
var renderedCache = NewCache[string, string]()

func GetRendered(contentHash string) (string, bool) {
	return renderedCache.Get(contentHash)
}

func SetRendered(contentHash, html string) {
	renderedCache.Set(contentHash, html)
}

func ClearRendered() {
	renderedCache.Clear()
}
