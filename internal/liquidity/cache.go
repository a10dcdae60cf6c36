package liquidity

import (
	"sort"
	"sync"

	"StopHunter/internal/model"
)

// ZoneCache keeps the latest zone per symbol. Entries are replaced, never
// merged, and never evicted: the key space is bounded by the watchlist the
// process scans, so the cache is unbounded by decision.
type ZoneCache struct {
	mu    sync.RWMutex
	zones map[string]model.LiquidityZone
}

// NewZoneCache creates an empty cache.
func NewZoneCache() *ZoneCache {
	return &ZoneCache{zones: make(map[string]model.LiquidityZone)}
}

// Put stores zone under its symbol, replacing any previous entry.
func (c *ZoneCache) Put(zone model.LiquidityZone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zones[zone.Symbol] = cloneZone(zone)
}

// Get returns a copy of the cached zone for symbol.
func (c *ZoneCache) Get(symbol string) (model.LiquidityZone, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	z, ok := c.zones[symbol]
	if !ok {
		return model.LiquidityZone{}, false
	}
	return cloneZone(z), true
}

// Len returns the number of cached symbols.
func (c *ZoneCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.zones)
}

// Symbols returns the cached symbols in sorted order.
func (c *ZoneCache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.zones))
	for s := range c.zones {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func cloneZone(z model.LiquidityZone) model.LiquidityZone {
	if z.VolumeClusters != nil {
		z.VolumeClusters = append([]float64(nil), z.VolumeClusters...)
	}
	return z
}
