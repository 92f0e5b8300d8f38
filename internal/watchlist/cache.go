package watchlist

import (
	"context"
	"sort"
	"sync"

	"github.com/trogers1052/dilution-tracker/internal/models"
)

// Cache holds the latest enrichment result per ticker. Writes are
// last-writer-wins per ticker.
type Cache interface {
	Get(ctx context.Context, ticker string) (*models.EnrichedTicker, error)
	Set(ctx context.Context, result models.EnrichedTicker) error
	Delete(ctx context.Context, ticker string) error
	All(ctx context.Context) ([]models.EnrichedTicker, error)
}

// MemoryCache is an in-process Cache
type MemoryCache struct {
	mu      sync.RWMutex
	results map[string]models.EnrichedTicker
}

// NewMemoryCache creates an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{results: make(map[string]models.EnrichedTicker)}
}

// Get returns the cached result for ticker, or nil when there is none
func (c *MemoryCache) Get(_ context.Context, ticker string) (*models.EnrichedTicker, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[ticker]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

// Set stores result under its ticker
func (c *MemoryCache) Set(_ context.Context, result models.EnrichedTicker) error {
	c.mu.Lock()
	c.results[result.Ticker] = result
	c.mu.Unlock()
	return nil
}

// Delete drops the cached result for ticker
func (c *MemoryCache) Delete(_ context.Context, ticker string) error {
	c.mu.Lock()
	delete(c.results, ticker)
	c.mu.Unlock()
	return nil
}

// All returns every cached result ordered by ticker
func (c *MemoryCache) All(_ context.Context) ([]models.EnrichedTicker, error) {
	c.mu.RLock()
	out := make([]models.EnrichedTicker, 0, len(c.results))
	for _, res := range c.results {
		out = append(out, res)
	}
	c.mu.RUnlock()

	sortByTicker(out)
	return out, nil
}

func sortByTicker(results []models.EnrichedTicker) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Ticker < results[j].Ticker
	})
}
