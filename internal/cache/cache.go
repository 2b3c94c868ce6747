package cache

import (
	"github.com/dgraph-io/ristretto"

	"itemsapi/internal/domain"
)

// entryOverhead approximates the fixed size of an item beyond its strings.
const entryOverhead = 64

type ItemCache struct {
	cache *ristretto.Cache
}

func New(maxSizePow2 int) (*ItemCache, error) {
	maxCost := max(1, int64(1)<<maxSizePow2)
	numCounters := max(1, maxCost/100)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &ItemCache{cache: cache}, nil
}

func (c *ItemCache) Get(id int64) (domain.Item, bool) {
	val, found := c.cache.Get(id)
	if !found {
		return domain.Item{}, false
	}
	return val.(domain.Item), true
}

// Set stores a copy of item that shares no pointers with the caller. Writes are
// buffered, so a Get immediately after Set may still miss.
func (c *ItemCache) Set(item domain.Item) {
	cost := int64(entryOverhead + len(item.Name))
	if item.Description != nil {
		desc := *item.Description
		item.Description = &desc
		cost += int64(len(desc))
	}
	if item.UpdatedAt != nil {
		updated := *item.UpdatedAt
		item.UpdatedAt = &updated
	}
	c.cache.Set(item.ID, item, cost)
}

// Wait blocks until buffered writes are applied.
func (c *ItemCache) Wait() {
	c.cache.Wait()
}

func (c *ItemCache) Close() {
	c.cache.Close()
}

func (c *ItemCache) Stats() (hits, misses uint64, ratio float64) {
	metrics := c.cache.Metrics
	hits = metrics.Hits()
	misses = metrics.Misses()
	ratio = metrics.Ratio()
	return
}
