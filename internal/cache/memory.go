package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local cache used when Redis is not configured.
type Memory struct {
	mu    sync.RWMutex
	items map[string]item
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]item)}
}

func (c *Memory) Get(_ context.Context, key string, dest any) error {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(it.expiresAt) {
		return ErrMiss
	}
	return json.Unmarshal(it.value, dest)
}

func (c *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items[key] = item{value: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}
