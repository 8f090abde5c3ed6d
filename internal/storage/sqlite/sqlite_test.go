package sqlitestorage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newInitialised(t *testing.T, cfg Config) *Backend {
	t.Helper()
	b, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestContract_InMemory(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return newInitialised(t, Config{})
	})
}

func TestContract_File(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return newInitialised(t, Config{Path: filepath.Join(t.TempDir(), "classes.db")})
	})
}

func TestFile_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "classes.db")
	c := storagetest.SampleClass("durable")

	b, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init(ctx))
	_, err = b.Save(ctx, "alice", c)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	reopened := newInitialised(t, Config{Path: path})
	got, err := reopened.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c, *got)
}

func TestClose_DumpsToDisk(t *testing.T) {
	ctx := context.Background()
	dump := filepath.Join(t.TempDir(), "dump.db")
	c := storagetest.SampleClass("dumped")

	b, err := New(Config{DumpPath: dump, DumpInterval: time.Hour}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init(ctx))
	_, err = b.Save(ctx, "alice", c)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "close is idempotent")

	fromDump := newInitialised(t, Config{Path: dump})
	list, err := fromDump.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}
