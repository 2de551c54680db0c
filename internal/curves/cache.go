package curves

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
)

// DefaultCacheSize covers four channels over a handful of recent edits.
const DefaultCacheSize = 64

// Cache memoizes LUTs by the curve's control points. It is safe for concurrent use.
// A nil *Cache builds every LUT from scratch.
type Cache struct {
	lru *lru.Cache[string, LUT]
}

// NewCache creates a cache holding up to size tables.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, LUT](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lut cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// LUT returns the table for a curve, building it on a miss.
func (c *Cache) LUT(curve adjust.Curve) LUT {
	if c == nil {
		return BuildLUT(curve)
	}
	key := curve.Fingerprint()
	if l, ok := c.lru.Get(key); ok {
		return l
	}
	l := BuildLUT(curve)
	c.lru.Add(key, l)
	return l
}

// Len reports how many tables are cached.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
