package series

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lox/meteopl/internal/records"
)

// DefaultCacheSize is used when NewCache is given a non-positive size.
const DefaultCacheSize = 128

type cacheKey struct {
	first *records.Record
	n     int
	kind  Kind
}

// Cache memoises ToSeries by batch identity and chart kind. Batches are
// treated as immutable once classified: the key is the address of the
// first record and the length, so a batch mutated in place returns stale
// datasets.
type Cache struct {
	lru *lru.Cache[cacheKey, Dataset]
}

// NewCache creates a cache holding up to size datasets.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[cacheKey, Dataset](size)
	if err != nil {
		return nil, fmt.Errorf("create series cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached dataset for (batch, kind), computing it on a miss.
// Errors are not cached.
func (c *Cache) Get(batch records.Batch, kind Kind) (Dataset, error) {
	if batch.Empty() {
		return ToSeries(batch, kind)
	}
	key := cacheKey{first: &batch.Records[0], n: batch.Len(), kind: kind}
	if ds, ok := c.lru.Get(key); ok {
		return ds, nil
	}
	ds, err := ToSeries(batch, kind)
	if err != nil {
		return Dataset{}, err
	}
	c.lru.Add(key, ds)
	return ds, nil
}

// Len returns the number of cached datasets.
func (c *Cache) Len() int {
	return c.lru.Len()
}
