package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	id := NewID(PrefixMarker)
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "marker", parts[0])
	assert.Len(t, parts[2], idSuffixLen)
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID(PrefixContent)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewClass_Defaults(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	Clock = func() time.Time { return fixed }
	t.Cleanup(func() { Clock = time.Now })

	c := NewClass("alice")

	assert.True(t, strings.HasPrefix(c.ID, "class_"))
	assert.Empty(t, c.Title)
	assert.Empty(t, c.Description)
	assert.Equal(t, fixed.UnixMilli(), c.CreatedAt)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	require.Len(t, c.MarkerObjects, 1)
	m := c.MarkerObjects[0]
	assert.Empty(t, m.MarkerImage)
	require.Len(t, m.Steps, 1)
	assert.NotNil(t, m.Steps[0].Contents)
	assert.Empty(t, m.Steps[0].Contents)
}

func TestNewContent_ButtonDefaults(t *testing.T) {
	b := NewContent(ContentButton)
	assert.Equal(t, ActionNextStep, b.Action)
	assert.Equal(t, "", b.ActionValue)
	assert.Equal(t, "", b.Value)

	txt := NewContent(ContentText)
	assert.Empty(t, txt.Action)
}

func TestContent_HasValue(t *testing.T) {
	assert.False(t, Content{Type: ContentText, Value: "  "}.HasValue())
	assert.True(t, Content{Type: ContentText, Value: "hi"}.HasValue())
	assert.True(t, Content{Type: ContentButton}.HasValue())
}

func TestClone_IsDeep(t *testing.T) {
	c := NewClass("alice")
	c.MarkerObjects[0].Steps[0].Contents = append(c.MarkerObjects[0].Steps[0].Contents, NewContent(ContentText))

	cp := c.Clone()
	cp.MarkerObjects[0].Steps[0].Contents[0].Value = "changed"
	cp.MarkerObjects[0].MarkerImage = "img"

	assert.Equal(t, "", c.MarkerObjects[0].Steps[0].Contents[0].Value)
	assert.Equal(t, "", c.MarkerObjects[0].MarkerImage)
}

func TestNormalize(t *testing.T) {
	c := Class{
		ID:            "class_1",
		MarkerObjects: []Marker{{ID: "m1", MarkerImage: "img"}},
		CreatedAt:     10,
		UpdatedAt:     5,
	}

	n := c.Normalize()

	require.Len(t, n.MarkerObjects[0].Steps, 1)
	assert.NotNil(t, n.MarkerObjects[0].Steps[0].Contents)
	assert.Equal(t, int64(10), n.UpdatedAt)
	assert.Nil(t, c.MarkerObjects[0].Steps, "input must not be modified")

	empty := Class{ID: "x"}.Normalize()
	assert.NotNil(t, empty.MarkerObjects)
}

func TestRecord_JSONShape(t *testing.T) {
	r := Record{Class: NewClass("alice"), OwnerID: "alice"}

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "alice", m["ownerId"])
	assert.Contains(t, m, "markerObjects")
	assert.Contains(t, m, "createdAt")

	var back Record
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, r, back)
}

func TestCounts(t *testing.T) {
	c := NewClass("alice")
	c.MarkerObjects = append(c.MarkerObjects, NewMarker())
	c.MarkerObjects[1].Steps[0].Contents = []Content{NewContent(ContentText), NewContent(ContentImage)}

	markers, steps, contents := c.Counts()
	assert.Equal(t, 2, markers)
	assert.Equal(t, 2, steps)
	assert.Equal(t, 2, contents)
}

func TestValidationError_Is(t *testing.T) {
	m := Marker{ID: "marker_1"}
	err := MarkerError(CodeEmptyMarkerContent, "marker has no content", 2, m)

	assert.True(t, errors.Is(err, ErrEmptyMarkerContent))
	assert.False(t, errors.Is(err, ErrNoMarkerImage))
	assert.Contains(t, err.Error(), "marker_1")

	wrapped := fmt.Errorf("saving: %w", err)
	assert.True(t, errors.Is(wrapped, ErrEmptyMarkerContent))
	assert.True(t, IsValidation(wrapped))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapStorage("sqlite", "save", cause)

	assert.True(t, IsStorage(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "sqlite")

	assert.Nil(t, WrapStorage("sqlite", "save", nil))
	assert.Same(t, err, WrapStorage("other", "get", err))
}
