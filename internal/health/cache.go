package health

import (
	"sync"
	"time"
)

type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

// resultCache memoizes the last result of one probe for a fixed window.
type resultCache struct {
	ttl   time.Duration
	mu    sync.Mutex
	entry *cacheEntry
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{ttl: ttl}
}

// get returns the memoized result if now is still inside the window.
func (c *resultCache) get(now time.Time) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || !now.Before(c.entry.expiresAt) {
		return Result{}, false
	}
	return c.entry.result, true
}

func (c *resultCache) put(r Result, now time.Time) {
	c.mu.Lock()
	c.entry = &cacheEntry{result: r, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}
