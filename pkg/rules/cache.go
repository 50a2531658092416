package rules

import "sync"

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type memoryCache struct {
	entries sync.Map
}

// NewMemoryCache returns a ProgramCache backed by a sync.Map.
func NewMemoryCache() ProgramCache {
	return &memoryCache{}
}

func (c *memoryCache) Get(key string) (any, bool) {
	return c.entries.Load(key)
}

func (c *memoryCache) Set(key string, value any) {
	c.entries.Store(key, value)
}
