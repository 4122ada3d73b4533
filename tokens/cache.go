package tokens

import "sync"

// readCache fronts the durable store for token lookups. It is invalidated
// on every write path and is never the source of truth for the single-use
// compare-and-swap.
type readCache struct {
	mu      sync.RWMutex
	entries map[string]Token
}

func newReadCache() *readCache {
	return &readCache{entries: make(map[string]Token)}
}

func (c *readCache) get(value string) (*Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[value]
	if !ok {
		return nil, false
	}
	copy := t
	return &copy, true
}

func (c *readCache) put(t *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[t.Value] = *t
}

func (c *readCache) invalidate(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, value)
}
