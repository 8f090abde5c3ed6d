package editor

import (
	"testing"

	"github.com/areduca/classbuilder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampIndex(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{-1, 3, 0},
		{1, 3, 1},
		{3, 3, 2},
		{9, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampIndex(tt.i, tt.n), "clampIndex(%d, %d)", tt.i, tt.n)
	}
}

func TestNavigator_RemoveLastActiveMarker(t *testing.T) {
	c := sampleClass(t)
	n := NewNavigator()
	n.OpenMarker(c, 2)

	out, err := n.RemoveMarker(c, 2)

	require.NoError(t, err)
	assert.Len(t, out.MarkerObjects, 2)
	assert.Equal(t, 1, n.ActiveMarker)
}

func TestNavigator_RemoveBeforeActiveShiftsSelection(t *testing.T) {
	c := sampleClass(t)
	n := NewNavigator()
	n.OpenMarker(c, 2)
	selected := c.MarkerObjects[2].ID

	out, err := n.RemoveMarker(c, 0)

	require.NoError(t, err)
	assert.Equal(t, selected, out.MarkerObjects[n.ActiveMarker].ID)
}

func TestNavigator_RefusedRemovalKeepsSelection(t *testing.T) {
	fixClock(t, 1_000)
	c := core.NewClass("alice")
	n := NewNavigator()
	n.OpenMarker(c, 0)

	out, err := n.RemoveMarker(c, 0)

	assert.ErrorIs(t, err, core.ErrLastMarker)
	assert.Equal(t, c, out)
	assert.Equal(t, 0, n.ActiveMarker)
}

func TestNavigator_AddMarkerSelectsIt(t *testing.T) {
	c := sampleClass(t)
	n := NewNavigator()
	n.ShowMarkers()

	out := n.AddMarker(c)

	assert.Equal(t, 3, n.ActiveMarker)
	assert.Equal(t, 0, n.ActiveStep)
	assert.Equal(t, StateMarkerEditor, n.State)
	assert.Len(t, out.MarkerObjects, 4)
}

func TestNavigator_Steps(t *testing.T) {
	c := sampleClass(t)
	n := NewNavigator()
	n.OpenMarker(c, 1)

	c = n.AddStep(c)
	assert.Equal(t, 2, n.ActiveStep)
	assert.Equal(t, StateStepEditor, n.State)

	c, err := n.RemoveStep(c, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n.ActiveStep)
	assert.Len(t, c.MarkerObjects[1].Steps, 2)
}

func TestNavigator_Back(t *testing.T) {
	c := sampleClass(t)
	n := NewNavigator()
	n.OpenMarker(c, 0)
	n.OpenStep(c, 0)

	n.Back()
	assert.Equal(t, StateMarkerEditor, n.State)
	n.Back()
	assert.Equal(t, StateMarkerList, n.State)
	n.Back()
	assert.Equal(t, StateClassDetails, n.State)
	n.Back()
	assert.Equal(t, StateClassDetails, n.State)
}

func TestNavigator_ClampOnShrunkClass(t *testing.T) {
	c := sampleClass(t)
	n := &Navigator{State: StateStepEditor, ActiveMarker: 7, ActiveStep: 4}

	n.Clamp(c)

	assert.Equal(t, 2, n.ActiveMarker)
	assert.Equal(t, 0, n.ActiveStep)

	n.Clamp(core.Class{})
	assert.Equal(t, 0, n.ActiveMarker)
	assert.Equal(t, 0, n.ActiveStep)
}
