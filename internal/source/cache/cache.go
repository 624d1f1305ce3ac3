// Package cache keeps decoded GeoJSON collections in a bounded LRU.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/observability"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

const DefaultSize = 64

// Entry is a decoded collection and the fingerprint of the bytes it came
// from. Fingerprint may be empty when the store tracks changes itself.
type Entry struct {
	Fingerprint string
	Collection  *geojson.FeatureCollection
}

// Cache is safe for concurrent use.
type Cache struct {
	lru *lru.Cache[string, Entry]
}

func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("source cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

func (c *Cache) Get(id string) (Entry, bool) {
	e, ok := c.lru.Get(id)
	if ok {
		observability.IncSourceCacheHit()
	} else {
		observability.IncSourceCacheMiss()
	}
	return e, ok
}

// Lookup returns the entry only when its fingerprint matches.
func (c *Cache) Lookup(id, fingerprint string) (*geojson.FeatureCollection, bool) {
	e, ok := c.lru.Get(id)
	if ok && e.Fingerprint == fingerprint {
		observability.IncSourceCacheHit()
		return e.Collection, true
	}
	observability.IncSourceCacheMiss()
	return nil, false
}

func (c *Cache) Add(id string, e Entry) {
	c.lru.Add(id, e)
}

func (c *Cache) Remove(id string) bool {
	return c.lru.Remove(id)
}

func (c *Cache) Purge() {
	c.lru.Purge()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
