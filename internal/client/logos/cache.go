// Package logos resolves token icon URLs in the background.
//
// A Cache is shared by every Resolver of a view. Resolvers run sequential,
// capped passes over their items and only ever add entries; a caller evicts
// an entry when the icon fails to render so a later pass can try again.
package logos

import (
	"maps"
	"strings"
	"sync"
)

// Key returns the cache key of a token address.
func Key(address string) string {
	return strings.ToLower(address)
}

// Cache maps lower-cased token addresses to icon URLs and tracks the
// addresses currently being looked up.
type Cache struct {
	mu       sync.Mutex
	logos    map[string]string
	inflight map[string]struct{}
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		logos:    make(map[string]string),
		inflight: make(map[string]struct{}),
	}
}

// Get returns the icon URL of address.
func (c *Cache) Get(address string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.logos[Key(address)]
	return url, ok
}

// Snapshot returns a copy of every resolved entry.
func (c *Cache) Snapshot() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.logos)
}

// Len returns the number of resolved entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.logos)
}

// PutIfAbsent stores url unless address already has an entry.
// It reports whether url was stored.
func (c *Cache) PutIfAbsent(address, url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := Key(address)
	if _, ok := c.logos[key]; ok {
		return false
	}
	c.logos[key] = url
	return true
}

// Evict drops the entry of address, typically after its image failed to load.
func (c *Cache) Evict(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.logos, Key(address))
}

// InFlight reports whether a lookup for address is running.
func (c *Cache) InFlight(address string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[Key(address)]
	return ok
}

// claim marks key in flight unless it is resolved or already claimed.
func (c *Cache) claim(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.logos[key]; ok {
		return false
	}
	if _, ok := c.inflight[key]; ok {
		return false
	}
	c.inflight[key] = struct{}{}
	return true
}

func (c *Cache) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)
}

// skip reports whether key needs no lookup right now.
func (c *Cache) skip(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.logos[key]; ok {
		return true
	}
	_, ok := c.inflight[key]
	return ok
}
