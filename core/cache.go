package core

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 5000

type Cache struct {
	cache *lru.TwoQueueCache[uint64, *Result]
}

// initCache initializes the compiled-query cache
func (gc *graphCompiler) initCache() (err error) {
	size := gc.conf.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	gc.cache.cache, err = lru.New2Q[uint64, *Result](size)
	return
}

// Get returns the compiled result from the cache
func (c Cache) Get(key uint64) (res *Result, fromCache bool) {
	res, fromCache = c.cache.Get(key)
	return
}

// Set sets the compiled result in the cache
func (c Cache) Set(key uint64, res *Result) {
	c.cache.Add(key, res)
}
