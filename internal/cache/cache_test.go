package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/internal/storage/memory"
	"github.com/areduca/classbuilder/internal/storage/storagetest"
	"github.com/areduca/classbuilder/pkg/core"
)

func newMemory(t *testing.T) *memory.Backend {
	t.Helper()
	b := memory.New(config.MemoryConfig{}, nil)
	require.NoError(t, b.Init(context.Background()))
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBackend_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return Wrap(newMemory(t), 8)
	})
}

func TestClassCache_NewClassCache(t *testing.T) {
	c := NewClassCache(0)

	require.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, c.size)
}

func TestClassCache_PutAndGet(t *testing.T) {
	c := NewClassCache(4)
	class := storagetest.SampleClass("cells")

	c.Put(class)

	got, ok := c.Get(class.ID)
	require.True(t, ok)
	assert.Equal(t, class, got)
	assert.Equal(t, 1, c.Hits.Value())

	_, ok = c.Get("class_missing")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Misses.Value())
}

func TestClassCache_ReturnsCopies(t *testing.T) {
	c := NewClassCache(4)
	class := storagetest.SampleClass("cells")
	c.Put(class)

	got, _ := c.Get(class.ID)
	got.MarkerObjects[0].MarkerImage = "changed"

	again, _ := c.Get(class.ID)
	assert.Equal(t, "https://img.test/marker.png", again.MarkerObjects[0].MarkerImage)
}

func TestClassCache_EvictsOldest(t *testing.T) {
	c := NewClassCache(2)
	a := storagetest.SampleClass("a")
	b := storagetest.SampleClass("b")
	d := storagetest.SampleClass("d")

	c.Put(a)
	c.Put(b)
	c.Put(a)
	c.Put(d)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(a.ID)
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get(b.ID)
	assert.True(t, ok)
	_, ok = c.Get(d.ID)
	assert.True(t, ok)
}

func TestClassCache_Remove(t *testing.T) {
	c := NewClassCache(2)
	a := storagetest.SampleClass("a")
	c.Put(a)

	c.Remove(a.ID)
	c.Remove("class_missing")

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.order)
}

func TestBackend_ServesRepeatReadsFromCache(t *testing.T) {
	ctx := context.Background()
	b := Wrap(newMemory(t), 8)
	class := storagetest.SampleClass("cells")
	_, err := b.Save(ctx, "alice", class)
	require.NoError(t, err)

	_, err = b.GetByID(ctx, class.ID)
	require.NoError(t, err)
	got, err := b.GetByID(ctx, class.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	stats := Unwrap(b)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Misses.Value())
	assert.Equal(t, 1, stats.Hits.Value())
}

func TestBackend_SaveEvicts(t *testing.T) {
	ctx := context.Background()
	b := Wrap(newMemory(t), 8)
	class := storagetest.SampleClass("cells")
	_, err := b.Save(ctx, "alice", class)
	require.NoError(t, err)
	_, err = b.GetByID(ctx, class.ID)
	require.NoError(t, err)

	class.Title = "edited"
	_, err = b.Save(ctx, "alice", class)
	require.NoError(t, err)

	got, err := b.GetByID(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Title)
}

// hookBackend runs beforeSave inside the wrapped Save, while the write is
// in flight.
type hookBackend struct {
	*memory.Backend
	beforeSave func()
}

func (h *hookBackend) Save(ctx context.Context, o string, c core.Class) (core.Class, error) {
	if h.beforeSave != nil {
		h.beforeSave()
	}
	return h.Backend.Save(ctx, o, c)
}

func TestBackend_ReadDuringSaveDoesNotCacheOldValue(t *testing.T) {
	ctx := context.Background()
	inner := &hookBackend{Backend: newMemory(t)}
	b := Wrap(inner, 8)
	class := storagetest.SampleClass("v1")
	_, err := b.Save(ctx, "alice", class)
	require.NoError(t, err)

	inner.beforeSave = func() {
		got, err := b.GetByID(ctx, class.ID)
		require.NoError(t, err)
		assert.Equal(t, "v1", got.Title)
	}
	class.Title = "v2"
	_, err = b.Save(ctx, "alice", class)
	require.NoError(t, err)
	inner.beforeSave = nil

	got, err := b.GetByID(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
}

func TestBackend_ConcurrentReadDuringBlockedSave(t *testing.T) {
	ctx := context.Background()
	inner := &hookBackend{Backend: newMemory(t)}
	b := Wrap(inner, 8)
	class := storagetest.SampleClass("v1")
	_, err := b.Save(ctx, "alice", class)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	inner.beforeSave = func() {
		close(started)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		edited := class
		edited.Title = "v2"
		_, err := b.Save(ctx, "alice", edited)
		done <- err
	}()

	<-started
	stale, err := b.GetByID(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", stale.Title)
	close(release)
	require.NoError(t, <-done)

	got, err := b.GetByID(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
}

func TestBackend_DeleteEvicts(t *testing.T) {
	ctx := context.Background()
	b := Wrap(newMemory(t), 8)
	class := storagetest.SampleClass("doomed")
	_, err := b.Save(ctx, "alice", class)
	require.NoError(t, err)
	_, err = b.GetByID(ctx, class.ID)
	require.NoError(t, err)

	removed, err := b.DeleteByID(ctx, class.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := b.GetByID(ctx, class.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClassCache_PutIfUnchanged(t *testing.T) {
	c := NewClassCache(4)
	class := storagetest.SampleClass("cells")

	gen := c.Generation()
	c.Remove(class.ID)
	assert.False(t, c.PutIfUnchanged(class, gen), "an invalidation since gen must block the fill")
	assert.Equal(t, 0, c.Len())

	assert.True(t, c.PutIfUnchanged(class, c.Generation()))
	assert.Equal(t, 1, c.Len())
}

func TestBackend_MissingIsNotCached(t *testing.T) {
	ctx := context.Background()
	b := Wrap(newMemory(t), 8)

	got, err := b.GetByID(ctx, "class_nope")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, Unwrap(b).Len())
}

func TestWrap_KeepsOwned(t *testing.T) {
	b := Wrap(newMemory(t), 8)
	_, ok := b.(storage.Owned)
	assert.True(t, ok)

	plain := Wrap(plainBackend{newMemory(t)}, 8)
	_, ok = plain.(storage.Owned)
	assert.False(t, ok)
	assert.NotNil(t, Unwrap(plain))
	assert.Nil(t, Unwrap(newMemory(t)))
}

// plainBackend hides OwnerOf.
type plainBackend struct{ inner *memory.Backend }

func (p plainBackend) Init(ctx context.Context) error { return p.inner.Init(ctx) }
func (p plainBackend) Close() error                   { return p.inner.Close() }
func (p plainBackend) Save(ctx context.Context, o string, c core.Class) (core.Class, error) {
	return p.inner.Save(ctx, o, c)
}
func (p plainBackend) ListByOwner(ctx context.Context, o string) ([]core.Summary, error) {
	return p.inner.ListByOwner(ctx, o)
}
func (p plainBackend) GetByID(ctx context.Context, id string) (*core.Class, error) {
	return p.inner.GetByID(ctx, id)
}
func (p plainBackend) DeleteByID(ctx context.Context, id string) (bool, error) {
	return p.inner.DeleteByID(ctx, id)
}

func TestSafeCounter_Concurrent(t *testing.T) {
	var counter SafeCounter
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter.Value())
	counter.Set(5)
	assert.Equal(t, 5, counter.Value())
}
