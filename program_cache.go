package props

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// ProgramCache stores compiled expression programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// DefaultProgramCacheSize is used by NewLRUProgramCache for non-positive
// sizes.
const DefaultProgramCacheSize = 256

type lruProgramCache struct {
	cache *lru.Cache[string, any]
}

// NewLRUProgramCache returns a bounded, concurrency-safe ProgramCache that
// evicts the least recently used program.
func NewLRUProgramCache(size int) ProgramCache {
	if size <= 0 {
		size = DefaultProgramCacheSize
	}
	cache, err := lru.New[string, any](size)
	if err != nil {
		// only returned for non-positive sizes
		panic(err)
	}
	return &lruProgramCache{cache: cache}
}

func (c *lruProgramCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c *lruProgramCache) Set(key string, value any) {
	c.cache.Add(key, value)
}

// Len returns the number of cached programs.
func (c *lruProgramCache) Len() int {
	return c.cache.Len()
}
