package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/internal/storage/storagetest"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Owned interface
var _ storage.Owned = (*Backend)(nil)

func newInitialised(t *testing.T, cfg config.MemoryConfig) *Backend {
	t.Helper()
	b := New(cfg, nil)
	require.NoError(t, b.Init(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return newInitialised(t, config.MemoryConfig{})
	})
}

func TestContract_WithSnapshot(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return newInitialised(t, config.MemoryConfig{SnapshotPath: filepath.Join(t.TempDir(), "classes.json")})
	})
}

func TestSnapshot_SurvivesRestart(t *testing.T) {
	for _, name := range []string{"classes.json", "classes.json.gz"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), name)

			b := New(config.MemoryConfig{SnapshotPath: path}, nil)
			require.NoError(t, b.Init(ctx))
			c := storagetest.SampleClass("persisted")
			_, err := b.Save(ctx, "alice", c)
			require.NoError(t, err)
			require.NoError(t, b.Close())

			reopened := newInitialised(t, config.MemoryConfig{SnapshotPath: path})
			got, err := reopened.GetByID(ctx, c.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, c, *got)

			owner, found, err := reopened.OwnerOf(ctx, c.ID)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "alice", owner)
		})
	}
}

func TestSnapshot_CorruptFileFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	b := newInitialised(t, config.MemoryConfig{SnapshotPath: path})

	list, err := b.ListByOwner(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSnapshot_SkipsCorruptRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.json")
	body := `[
		{"id": "class_1", "title": "ok", "markerObjects": [], "ownerId": "alice"},
		{"id": 42},
		"garbage",
		{"title": "no id", "ownerId": "alice"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	b := newInitialised(t, config.MemoryConfig{SnapshotPath: path})

	list, err := b.ListByOwner(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "class_1", list[0].ID)
}

// blockedSnapshotPath returns a snapshot path whose parent is a regular
// file, so every write fails.
func blockedSnapshotPath(t *testing.T) string {
	t.Helper()
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	return filepath.Join(blocker, "classes.json")
}

func TestSave_FailedSnapshotLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	b := newInitialised(t, config.MemoryConfig{})
	kept := storagetest.SampleClass("kept")
	_, err := b.Save(ctx, "alice", kept)
	require.NoError(t, err)

	b.cfg.SnapshotPath = blockedSnapshotPath(t)
	t.Cleanup(func() { b.cfg.SnapshotPath = "" })

	fresh := storagetest.SampleClass("fresh")
	_, err = b.Save(ctx, "alice", fresh)
	require.Error(t, err)
	assert.True(t, core.IsStorage(err))

	edited := kept
	edited.Title = "edited"
	_, err = b.Save(ctx, "bob", edited)
	require.Error(t, err)

	got, err := b.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "a failed save must not be visible")

	got, err = b.GetByID(ctx, kept.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kept", got.Title)

	owner, _, err := b.OwnerOf(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
	assert.Equal(t, 1, b.Len())
}

func TestDelete_FailedSnapshotKeepsRecord(t *testing.T) {
	ctx := context.Background()
	b := newInitialised(t, config.MemoryConfig{})
	first, second := storagetest.SampleClass("first"), storagetest.SampleClass("second")
	_, _ = b.Save(ctx, "alice", first)
	_, _ = b.Save(ctx, "alice", second)

	b.cfg.SnapshotPath = blockedSnapshotPath(t)
	removed, err := b.DeleteByID(ctx, first.ID)
	b.cfg.SnapshotPath = ""

	require.Error(t, err)
	assert.True(t, core.IsStorage(err))
	assert.False(t, removed)

	list, err := b.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)

	got, err := b.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Title)
}

func TestInit_BlockedSnapshotStartsEmptyAndRefusesWrites(t *testing.T) {
	ctx := context.Background()
	b := newInitialised(t, config.MemoryConfig{SnapshotPath: blockedSnapshotPath(t)})
	c := storagetest.SampleClass("never")

	_, err := b.Save(ctx, "alice", c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create snapshot directory")

	got, err := b.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSave_StoresCopy(t *testing.T) {
	ctx := context.Background()
	b := newInitialised(t, config.MemoryConfig{})
	c := storagetest.SampleClass("copy")

	_, err := b.Save(ctx, "alice", c)
	require.NoError(t, err)
	c.MarkerObjects[0].Steps[0].Contents[0].Value = "mutated"

	got, err := b.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.MarkerObjects[0].Steps[0].Contents[0].Value)
}

func TestDelete_ReindexesRemaining(t *testing.T) {
	ctx := context.Background()
	b := newInitialised(t, config.MemoryConfig{})
	a, m, z := storagetest.SampleClass("a"), storagetest.SampleClass("m"), storagetest.SampleClass("z")
	_, _ = b.Save(ctx, "alice", a)
	_, _ = b.Save(ctx, "alice", m)
	_, _ = b.Save(ctx, "alice", z)

	removed, err := b.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, removed)

	got, err := b.GetByID(ctx, z.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "z", got.Title)
	assert.Equal(t, 2, b.Len())
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	b := newInitialised(t, config.MemoryConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Save(ctx, "alice", storagetest.SampleClass("c"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, b.Len())
}
