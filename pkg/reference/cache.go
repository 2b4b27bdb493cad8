package reference

import (
	"context"
	"sync"

	"eolmatch/pkg/logx"
)

// Cache loads the reference list at most once per lifetime and serves copies.
// A failed load is not cached. Invalidate forces the next Get to reload.
type Cache struct {
	source Source
	logger *logx.Logger
	list   []string
	mu     sync.Mutex
	loaded bool
}

// NewCache wraps source.
func NewCache(source Source, logger *logx.Logger) *Cache {
	if logger == nil {
		logger = logx.NewLogger("reference")
	}
	return &Cache{source: source, logger: logger}
}

// Get returns the cached list, loading it on first use.
func (c *Cache) Get(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		list, err := c.source.Load(ctx)
		if err != nil {
			c.logger.Error("Failed to load reference list: %v", err)
			return nil, err
		}
		c.list = list
		c.loaded = true
		c.logger.Info("Loaded %d reference datastores", len(list))
	} else {
		c.logger.Debug("Returning cached reference list (%d entries)", len(c.list))
	}

	out := make([]string, len(c.list))
	copy(out, c.list)
	return out, nil
}

// Invalidate discards the cached list.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = nil
	c.loaded = false
}
