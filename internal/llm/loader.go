package llm

import (
	"context"
	"fmt"
	"sync"
)

// builder constructs a provider adapter from resolved inputs.
type builder func(ctx context.Context, f *Factory, in buildInput) (Provider, error)

// loaderCache memoizes provider builders per factory instance. Builders
// stand in for provider SDK modules: they are loaded on first use per
// provider to keep startup fast, and a concurrent double-load is
// harmless because loading is idempotent.
//
// The cache is owned by the factory, not process-global, so tests get
// isolated instances.
type loaderCache struct {
	mu     sync.Mutex
	loaded map[string]builder
}

func newLoaderCache() *loaderCache {
	return &loaderCache{loaded: make(map[string]builder)}
}

func (c *loaderCache) get(provider string, load func() builder) (builder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.loaded[provider]; ok {
		return b, nil
	}
	if load == nil {
		return nil, fmt.Errorf("no builder registered for provider %q", provider)
	}
	b := load()
	c.loaded[provider] = b
	return b, nil
}

// size reports how many builders have been loaded; used by tests to
// verify memoization.
func (c *loaderCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loaded)
}
