package api

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/joeblew999/plat-survey/internal/mapview"
)

// StyleCache keeps rendered style documents keyed by session and revision.
type StyleCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewStyleCache creates a cache holding at most maxCost descriptor entries.
func NewStyleCache(maxCost int64, ttl time.Duration) (*StyleCache, error) {
	if maxCost <= 0 {
		maxCost = 1 << 16
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: min(maxCost*10, 1_000_000),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("style cache: %w", err)
	}
	return &StyleCache{cache: c, ttl: ttl}, nil
}

func styleKey(id string, revision int64) string {
	return fmt.Sprintf("%s:%d", id, revision)
}

// Get returns the cached document for a session revision.
func (c *StyleCache) Get(id string, revision int64) (mapview.Document, bool) {
	if c == nil {
		return mapview.Document{}, false
	}
	v, ok := c.cache.Get(styleKey(id, revision))
	if !ok {
		return mapview.Document{}, false
	}
	doc, ok := v.(mapview.Document)
	return doc, ok
}

// Set stores doc. Its cost is the number of layers and sources it carries.
func (c *StyleCache) Set(id string, revision int64, doc mapview.Document) {
	if c == nil {
		return
	}
	cost := int64(len(doc.Layers) + len(doc.Sources) + 1)
	if c.ttl > 0 {
		c.cache.SetWithTTL(styleKey(id, revision), doc, cost, c.ttl)
	} else {
		c.cache.Set(styleKey(id, revision), doc, cost)
	}
	c.cache.Wait()
}

// Close stops the cache's background goroutines.
func (c *StyleCache) Close() {
	if c != nil {
		c.cache.Close()
	}
}
