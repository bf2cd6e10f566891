package geocoding

import (
	"container/list"
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
)

// CachedProvider wraps a Provider with an in-memory LRU cache and counts
// lookups per outcome. Empty results are not cached so they can be retried.
type CachedProvider struct {
	inner   Provider
	name    string
	metrics *metrics.Metrics

	mu         sync.Mutex
	maxEntries int
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type cacheEntry struct {
	key    string
	coords Coordinates
}

func NewCachedProvider(inner Provider, name string, maxEntries int, m *metrics.Metrics) *CachedProvider {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &CachedProvider{
		inner:      inner,
		name:       name,
		metrics:    m,
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *CachedProvider) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))
	if coords, ok := c.get(key); ok {
		c.observe("cached")
		return &coords, nil
	}

	coords, err := c.inner.Geocode(ctx, address)
	switch {
	case errors.Is(err, ErrEmptyResponse):
		c.observe("empty")
		return nil, err
	case err != nil:
		c.observe("error")
		return nil, err
	}
	c.observe("success")
	c.put(key, *coords)
	return coords, nil
}

// Len reports the number of cached addresses.
func (c *CachedProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *CachedProvider) observe(outcome string) {
	c.metrics.GeocodeRequests.WithLabelValues(c.name, outcome).Inc()
}

func (c *CachedProvider) get(key string) (Coordinates, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return Coordinates{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).coords, true
}

func (c *CachedProvider) put(key string, coords Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).coords = coords
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, coords: coords})
	if c.order.Len() > c.maxEntries {
		tail := c.order.Back()
		c.order.Remove(tail)
		delete(c.entries, tail.Value.(*cacheEntry).key)
	}
}
