// Package cache keeps recently read classes in memory in front of a
// storage backend.
package cache

import (
	"context"
	"sync"

	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/pkg/core"
)

// ClassCache is a bounded read-through cache of full classes keyed by id.
// Entries are evicted oldest first once Size is reached.
type ClassCache struct {
	mu      sync.RWMutex
	size    int
	classes map[string]core.Class
	order   []string
	writes  uint64 // bumped by every invalidation

	Hits   SafeCounter
	Misses SafeCounter
}

// NewClassCache creates a cache holding at most size classes.
func NewClassCache(size int) *ClassCache {
	if size < 1 {
		size = 1
	}
	return &ClassCache{
		size:    size,
		classes: make(map[string]core.Class, size),
	}
}

func (c *ClassCache) Put(class core.Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(class)
}

// Generation returns the write counter; pass it to PutIfUnchanged.
func (c *ClassCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writes
}

// PutIfUnchanged stores class only when no invalidation happened since gen
// was read, so a read racing a write cannot cache the old value.
func (c *ClassCache) PutIfUnchanged(class core.Class, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writes != gen {
		return false
	}
	c.put(class)
	return true
}

func (c *ClassCache) put(class core.Class) {
	if _, ok := c.classes[class.ID]; !ok {
		if len(c.order) >= c.size {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.classes, oldest)
		}
		c.order = append(c.order, class.ID)
	}
	c.classes[class.ID] = class.Clone()
}

func (c *ClassCache) Get(id string) (core.Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	class, ok := c.classes[id]
	if !ok {
		c.Misses.Inc()
		return core.Class{}, false
	}
	c.Hits.Inc()
	return class.Clone(), true
}

// Remove evicts id and counts as a write.
func (c *ClassCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes++
	if _, ok := c.classes[id]; !ok {
		return
	}
	delete(c.classes, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *ClassCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.classes)
}

// Backend wraps another backend and serves GetByID from the cache.
// Saves and deletes evict the entry before and after the wrapped write;
// listing always goes to the wrapped backend.
type Backend struct {
	inner storage.Backend
	cache *ClassCache
}

type ownedBackend struct {
	*Backend
	owned storage.Owned
}

func (b *ownedBackend) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	return b.owned.OwnerOf(ctx, id)
}

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Owned   = (*ownedBackend)(nil)
)

// Wrap returns inner behind a cache of the given size. The result still
// implements storage.Owned when inner does.
func Wrap(inner storage.Backend, size int) storage.Backend {
	b := &Backend{inner: inner, cache: NewClassCache(size)}
	if owned, ok := inner.(storage.Owned); ok {
		return &ownedBackend{Backend: b, owned: owned}
	}
	return b
}

// Unwrap returns the cache behind a wrapped backend, or nil.
func Unwrap(b storage.Backend) *ClassCache {
	switch v := b.(type) {
	case *Backend:
		return v.cache
	case *ownedBackend:
		return v.cache
	}
	return nil
}

func (b *Backend) Init(ctx context.Context) error { return b.inner.Init(ctx) }

func (b *Backend) Close() error { return b.inner.Close() }

func (b *Backend) Save(ctx context.Context, ownerID string, c core.Class) (core.Class, error) {
	b.cache.Remove(c.ID)
	defer b.cache.Remove(c.ID)
	return b.inner.Save(ctx, ownerID, c)
}

func (b *Backend) ListByOwner(ctx context.Context, ownerID string) ([]core.Summary, error) {
	return b.inner.ListByOwner(ctx, ownerID)
}

func (b *Backend) GetByID(ctx context.Context, id string) (*core.Class, error) {
	if c, ok := b.cache.Get(id); ok {
		return &c, nil
	}
	gen := b.cache.Generation()
	got, err := b.inner.GetByID(ctx, id)
	if err != nil || got == nil {
		return got, err
	}
	b.cache.PutIfUnchanged(*got, gen)
	return got, nil
}

func (b *Backend) DeleteByID(ctx context.Context, id string) (bool, error) {
	b.cache.Remove(id)
	defer b.cache.Remove(id)
	return b.inner.DeleteByID(ctx, id)
}

// SafeCounter is a mutex guarded counter.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
