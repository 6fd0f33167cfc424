package ai

import (
	"sync"
	"time"

	"github.com/onnwee/murphbot/telemetry"
)

// responseCache keeps recent completions keyed by user:prompt. Entries expire
// after ttl; when the cache exceeds maxEntries the oldest entries are evicted.
type responseCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type cacheEntry struct {
	response string
	storedAt time.Time
}

func newResponseCache(ttl time.Duration, maxEntries int) *responseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &responseCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func cacheKey(user, prompt string) string { return user + ":" + prompt }

// get returns a cached response, deleting it if expired.
func (c *responseCache) get(user, prompt string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := cacheKey(user, prompt)
	e, ok := c.entries[k]
	if !ok {
		if telemetry.AICacheMisses != nil {
			telemetry.AICacheMisses.Inc()
		}
		return "", false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, k)
		if telemetry.AICacheMisses != nil {
			telemetry.AICacheMisses.Inc()
		}
		return "", false
	}
	if telemetry.AICacheHits != nil {
		telemetry.AICacheHits.Inc()
	}
	return e.response, true
}

func (c *responseCache) put(user, prompt, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(user, prompt)] = cacheEntry{response: response, storedAt: c.now()}
	for len(c.entries) > c.maxEntries {
		oldestKey := ""
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.storedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.storedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
