package specstore

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// pathCache is the process-global, path-keyed cache of parsed specs
// described in SPEC_FULL.md §4.3/§9. Fill deduplication across concurrent
// readers uses singleflight.Group (internal/specstore is the one component
// wiring golang.org/x/sync into the domain stack, per SPEC_FULL.md §11).
type pathCache struct {
	mu    sync.RWMutex
	data  map[string]*Spec
	group singleflight.Group
}

func newPathCache() *pathCache {
	return &pathCache{data: make(map[string]*Spec)}
}

// get returns a clone of the cached spec at path, if any, so the caller's
// copy can't be mutated through the cache (and vice versa).
func (c *pathCache) get(path string) (*Spec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.data[path]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *pathCache) set(path string, s *Spec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[path] = s
}

func (c *pathCache) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, path)
}

func (c *pathCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*Spec)
}

// fill calls fn at most once concurrently per path, caching its result.
func (c *pathCache) fill(path string, fn func() (*Spec, error)) (*Spec, error) {
	if s, ok := c.get(path); ok {
		return s, nil
	}
	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		if s, ok := c.get(path); ok {
			return s, nil
		}
		s, err := fn()
		if err != nil {
			return nil, err
		}
		c.set(path, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	// Concurrent callers that joined the same singleflight.Do share v;
	// clone so each caller's fill still gets its own independent Spec.
	return v.(*Spec).Clone(), nil
}

var globalCache = newPathCache()

// InvalidateCachedPath evicts a single cache entry by absolute file path.
// Callers and file-watchers must invoke this on every observed change.
func InvalidateCachedPath(path string) {
	globalCache.invalidate(path)
}

// ClearGlobalCache resets the process-global cache. Intended for tests.
func ClearGlobalCache() {
	globalCache.clear()
}
