package translation

import "sync"

type cacheKey struct {
	source string
	target string
	text   string
}

// Cache is a bounded translation cache keyed by (source, target, exact text).
// Eviction is insertion-order FIFO: when capacity is exceeded the oldest
// inserted entry goes first, regardless of how recently it was read.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]string
	order    []cacheKey
}

// NewCache creates a cache holding at most capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 2000
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[cacheKey]string, capacity),
	}
}

// Get returns the cached translation for the exact text and language pair.
func (c *Cache) Get(source, target, text string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	translated, ok := c.entries[cacheKey{source, target, text}]
	return translated, ok
}

// Put stores a translation, evicting the oldest inserted entry at capacity.
func (c *Cache) Put(source, target, text, translated string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{source, target, text}
	if _, exists := c.entries[key]; exists {
		c.entries[key] = translated
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = translated
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
