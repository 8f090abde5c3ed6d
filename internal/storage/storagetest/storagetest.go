// Package storagetest holds the behaviour every storage.Backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/areduca/classbuilder/internal/storage"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewBackend returns a fresh, initialised and empty backend. It should
// register its own cleanup.
type NewBackend func(t *testing.T) storage.Backend

// SampleClass returns a savable class with two markers.
func SampleClass(title string) core.Class {
	c := core.NewClass("")
	c.Title = title
	c.Description = title + " description"
	c.Thumbnail = "https://img.test/" + title + ".png"
	c.MarkerObjects = append(c.MarkerObjects, core.NewMarker())
	for i := range c.MarkerObjects {
		c.MarkerObjects[i].MarkerImage = "https://img.test/marker.png"
		text := core.NewContent(core.ContentText)
		text.Value = "hello"
		button := core.NewContent(core.ContentButton)
		button.Value = "Continue"
		button.Title = "next"
		c.MarkerObjects[i].Steps[0].Contents = []core.Content{text, button}
	}
	return c
}

// Run exercises the contract against backends built by newBackend.
func Run(t *testing.T, newBackend NewBackend) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newBackend(t)) })
	t.Run("OwnerScoping", func(t *testing.T) { testOwnerScoping(t, newBackend(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newBackend(t)) })
	t.Run("UpsertKeepsOrder", func(t *testing.T) { testUpsertKeepsOrder(t, newBackend(t)) })
	t.Run("CrossOwnerOverwrite", func(t *testing.T) { testCrossOwnerOverwrite(t, newBackend(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newBackend(t)) })
	t.Run("Owner", func(t *testing.T) { testOwner(t, newBackend(t)) })
}

func testRoundTrip(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	c := SampleClass("roundtrip")

	saved, err := b.Save(ctx, "alice", c)
	require.NoError(t, err)
	assert.Equal(t, c.ID, saved.ID)

	got, err := b.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.GreaterOrEqual(t, got.UpdatedAt, c.UpdatedAt)
	expected := c
	expected.UpdatedAt = got.UpdatedAt
	assert.Equal(t, expected, *got)
}

func testOwnerScoping(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	c := SampleClass("alice-class")
	c2 := SampleClass("bob-class")

	_, err := b.Save(ctx, "alice", c)
	require.NoError(t, err)
	_, err = b.Save(ctx, "bob", c2)
	require.NoError(t, err)

	list, err := b.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
	assert.Equal(t, "alice-class", list[0].Title)
	assert.Equal(t, 2, list[0].MarkerCount)

	none, err := b.ListByOwner(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDelete(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	c := SampleClass("doomed")
	_, err := b.Save(ctx, "alice", c)
	require.NoError(t, err)

	removed, err := b.DeleteByID(ctx, "class_missing")
	require.NoError(t, err)
	assert.False(t, removed)

	list, err := b.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1, "deleting a missing id must not change the store")

	removed, err = b.DeleteByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := b.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	removed, err = b.DeleteByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func testUpsertKeepsOrder(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	first := SampleClass("first")
	second := SampleClass("second")
	third := SampleClass("third")

	for _, c := range []core.Class{first, second, third} {
		_, err := b.Save(ctx, "alice", c)
		require.NoError(t, err)
	}

	first.Title = "first, edited"
	_, err := b.Save(ctx, "alice", first)
	require.NoError(t, err)

	list, err := b.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "first, edited", list[0].Title)
}

// A save by another owner overwrites the record and moves it to that owner.
func testCrossOwnerOverwrite(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	c := SampleClass("shared")

	_, err := b.Save(ctx, "alice", c)
	require.NoError(t, err)

	c.Title = "taken over"
	_, err = b.Save(ctx, "mallory", c)
	require.NoError(t, err)

	got, err := b.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "taken over", got.Title)

	alice, err := b.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice)

	mallory, err := b.ListByOwner(ctx, "mallory")
	require.NoError(t, err)
	assert.Len(t, mallory, 1)
}

func testGetMissing(t *testing.T, b storage.Backend) {
	got, err := b.GetByID(context.Background(), "class_nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testOwner(t *testing.T, b storage.Backend) {
	owned, ok := b.(storage.Owned)
	if !ok {
		t.Skip("backend does not report owners")
	}
	ctx := context.Background()
	c := SampleClass("owned")
	_, err := b.Save(ctx, "alice", c)
	require.NoError(t, err)

	owner, found, err := owned.OwnerOf(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", owner)

	_, found, err = owned.OwnerOf(ctx, "class_nope")
	require.NoError(t, err)
	assert.False(t, found)
}
