package catalog

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/metrics"
)

// facetCache keeps one facet index per kind for ttl.
// Indexes are immutable, so cached values are shared without copying.
type facetCache struct {
	lru *expirable.LRU[domcat.Kind, facet.Index]
}

func newFacetCache(size int, ttl time.Duration) *facetCache {
	if size <= 0 {
		size = len(domcat.Kinds)
	}
	return &facetCache{lru: expirable.NewLRU[domcat.Kind, facet.Index](size, nil, ttl)}
}

func (c *facetCache) get(kind domcat.Kind) (facet.Index, bool) {
	idx, ok := c.lru.Get(kind)
	if ok {
		metrics.FacetCacheTotal.WithLabelValues("hit").Inc()
		return idx, true
	}
	metrics.FacetCacheTotal.WithLabelValues("miss").Inc()
	return facet.Index{}, false
}

func (c *facetCache) put(kind domcat.Kind, idx facet.Index) {
	c.lru.Add(kind, idx)
}

func (c *facetCache) remove(kind domcat.Kind) {
	c.lru.Remove(kind)
}
