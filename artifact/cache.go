package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// DefaultCacheSize is the number of artifacts a Cache keeps by default.
const DefaultCacheSize = 4

// Cache is a bounded LRU of loaded artifacts keyed by cleaned path.
//
// Concurrent Gets for the same path share one load. Save through the cache
// replaces the file, drops the cached entry and bumps the path's generation,
// so a load that began before the save finishes without being cached.
type Cache struct {
	mu          sync.Mutex
	entries     *lru.Cache[string, *Artifact]
	generations map[string]uint64
	group       singleflight.Group

	// load is replaced in tests.
	load func(path string) (*Artifact, error)
}

// NewCache creates a cache holding at most size artifacts.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *Artifact](size)
	if err != nil {
		return nil, errors.Wrap(err, "create artifact cache")
	}
	return &Cache{
		entries:     entries,
		generations: make(map[string]uint64),
		load:        Load,
	}, nil
}

// Get returns the artifact at path, loading it on a miss. hit reports
// whether it came from the cache.
func (c *Cache) Get(ctx context.Context, path string) (a *Artifact, hit bool, err error) {
	key := filepath.Clean(path)

	c.mu.Lock()
	if a, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		return a, true, nil
	}
	gen := c.generations[key]
	c.mu.Unlock()

	// keying the flight by generation keeps callers that arrive after a
	// Save from joining a load of the old file
	flight := fmt.Sprintf("%s#%d", key, gen)
	ch := c.group.DoChan(flight, func() (interface{}, error) {
		loaded, err := c.load(key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generations[key] == gen {
			c.entries.Add(key, loaded)
		}
		c.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, errors.Wrap(ctx.Err(), "load artifact")
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*Artifact), false, nil
	}
}

// Save writes a to path and invalidates the cached entry for it.
func (c *Cache) Save(path string, a *Artifact) error {
	key := filepath.Clean(path)
	err := Save(key, a)
	c.Invalidate(key)
	return err
}

// Invalidate drops path from the cache and makes in-flight loads of it
// unable to populate the cache.
func (c *Cache) Invalidate(path string) {
	key := filepath.Clean(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[key]++
	c.entries.Remove(key)
}

// Len returns the number of cached artifacts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
