package transform

import "sync"

// cacheKey is (filePath, format): the same source transforms differently
// for the browser ESM path and the handler CJS path.
type cacheKey struct {
	path   string
	format Format
}

// CacheEntry pairs transformed output with the source fingerprint it was
// produced from.
type CacheEntry struct {
	SourceHash uint32
	Output     string
}

// cache holds transform output. Requests run on multiple goroutines, so a
// mutex guards the map; readers see the previous or the new entry for a
// key, never a torn one.
type cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]CacheEntry
}

func newCache() *cache {
	return &cache{entries: make(map[cacheKey]CacheEntry)}
}

func (c *cache) get(path string, format Format) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey{path, format}]
	return e, ok
}

func (c *cache) put(path string, format Format, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{path, format}] = entry
}
