package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache memoizes compiled schemas by absolute path. A hit costs no I/O:
// entries live until Invalidate or Reset, normally driven by a Watcher on
// the schema files themselves. An optional disk cache backs cold loads
// across processes, keyed by document fingerprint.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Schema
	disk    *DiskCache
}

// NewCache returns an empty cache. disk may be nil.
func NewCache(disk *DiskCache) *Cache {
	return &Cache{entries: make(map[string]*Schema), disk: disk}
}

// Load returns the compiled schema for path, parsing it on a cold miss.
// Concurrent misses may both parse; the results are identical and the last
// store wins.
func (c *Cache) Load(path string) (*Schema, error) {
	key := cacheKey(path)

	c.mu.RLock()
	s, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	fp := Fingerprint(data)

	if c.disk != nil {
		if cached, hit, err := c.disk.Get(fp); err == nil && hit {
			cached.Path = path
			c.store(key, cached)
			return cached, nil
		}
	}

	s, err = Parse(data, FormatForPath(path), originForPath(path), path)
	if err != nil {
		return nil, err
	}
	if c.disk != nil {
		_ = c.disk.Put(s) // best effort; a failed write only costs a reparse
	}
	c.store(key, s)
	return s, nil
}

func (c *Cache) store(key string, s *Schema) {
	c.mu.Lock()
	c.entries[key] = s
	c.mu.Unlock()
}

// Invalidate drops the entry for path. The next Load reparses.
func (c *Cache) Invalidate(path string) {
	key := cacheKey(path)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*Schema)
	c.mu.Unlock()
}

// Len reports how many schemas are resident.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
