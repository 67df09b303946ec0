// Package history remembers which substitute locators healed which broken ones.
package history

import (
	"sync"

	"locator-healing/internal/entity"
)

// Cache maps the canonical form of a broken locator to the substitutes that
// resolved in its place, in the order they first succeeded. A substitute
// already recorded for a key is not appended twice. Entries are never evicted.
type Cache struct {
	mu      sync.RWMutex
	records map[string][]entity.Locator
}

func NewCache() *Cache {
	return &Cache{
		records: make(map[string][]entity.Locator),
	}
}

func (c *Cache) Remember(original, successful entity.Locator) {
	key := original.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, known := range c.records[key] {
		if known == successful {
			return
		}
	}

	c.records[key] = append(c.records[key], successful)
}

// Lookup returns a copy of the record for original, or nil.
func (c *Cache) Lookup(original entity.Locator) []entity.Locator {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record := c.records[original.String()]
	if len(record) == 0 {
		return nil
	}

	out := make([]entity.Locator, len(record))
	copy(out, record)

	return out
}

// Len returns the number of broken locators with at least one substitute.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.records)
}

// Snapshot copies the whole cache, keyed by canonical form.
func (c *Cache) Snapshot() map[string][]entity.Locator {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]entity.Locator, len(c.records))
	for key, record := range c.records {
		out[key] = append([]entity.Locator(nil), record...)
	}

	return out
}
