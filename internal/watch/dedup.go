package watch

import "sync"

const (
	// DefaultDedupCeiling/Floor bound the fingerprint cache. When the cache
	// grows past the ceiling it is shrunk back to the floor by evicting
	// arbitrary entries.
	DefaultDedupCeiling = 1000
	DefaultDedupFloor   = 500
)

// DedupCache is a bounded set of message fingerprints.
//
// It is deliberately approximate: eviction removes arbitrary entries (map
// iteration order), not the oldest. A recently seen message can therefore be
// forgotten early and notify twice. That trade is acceptable here; the cache
// exists to stop repeat spam in the common case, not to guarantee
// exactly-once.
type DedupCache struct {
	mu      sync.Mutex
	seen    map[uint64]struct{}
	ceiling int
	floor   int
}

func NewDedup(ceiling, floor int) *DedupCache {
	if ceiling <= 0 {
		ceiling = DefaultDedupCeiling
	}
	if floor <= 0 || floor > ceiling {
		floor = ceiling / 2
	}
	return &DedupCache{
		seen:    make(map[uint64]struct{}, floor),
		ceiling: ceiling,
		floor:   floor,
	}
}

// Seen reports whether fp is currently in the cache.
func (c *DedupCache) Seen(fp uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[fp]
	return ok
}

// Record adds fp to the cache, shrinking to the floor first if the cache
// is at its ceiling.
func (c *DedupCache) Record(fp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[fp]; ok {
		return
	}
	if len(c.seen) >= c.ceiling {
		for k := range c.seen {
			if len(c.seen) <= c.floor {
				break
			}
			delete(c.seen, k)
		}
	}
	c.seen[fp] = struct{}{}
}

func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
