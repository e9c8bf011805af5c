package service

import (
	"sync"
	"time"
)

// decisionCache is a TTL cache of check decisions keyed by IP. It holds
// both positive and negative results to spare the store on hot paths.
type decisionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	trusted bool
	expires time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	return &decisionCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached decision for ip, if present and fresh.
func (c *decisionCache) get(ip string) (trusted, ok bool) {
	c.mu.RLock()
	entry, found := c.entries[ip]
	c.mu.RUnlock()
	if !found || time.Now().After(entry.expires) {
		return false, false
	}
	return entry.trusted, true
}

// put records a decision for ip.
func (c *decisionCache) put(ip string, trusted bool) {
	c.mu.Lock()
	c.entries[ip] = cacheEntry{trusted: trusted, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// evict drops the entry for ip.
func (c *decisionCache) evict(ip string) {
	c.mu.Lock()
	delete(c.entries, ip)
	c.mu.Unlock()
}

// expiry returns when the entry for ip lapses, if one is cached.
func (c *decisionCache) expiry(ip string) (time.Time, bool) {
	c.mu.RLock()
	entry, found := c.entries[ip]
	c.mu.RUnlock()
	if !found || time.Now().After(entry.expires) {
		return time.Time{}, false
	}
	return entry.expires, true
}
