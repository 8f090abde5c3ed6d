package editor

import (
	"github.com/areduca/classbuilder/pkg/core"
)

// State is a screen of the class editor.
type State string

const (
	StateClassDetails State = "classDetails"
	StateMarkerList   State = "markerList"
	StateMarkerEditor State = "markerEditor"
	StateStepEditor   State = "stepEditor"
)

// Navigator tracks the editor screen and the active marker and step. Its
// methods wrap the structural operations that change marker or step counts
// and keep the active indexes inside the surviving arrays.
type Navigator struct {
	State        State `json:"state"`
	ActiveMarker int   `json:"activeMarker"`
	ActiveStep   int   `json:"activeStep"`
}

// NewNavigator starts on the class details screen.
func NewNavigator() *Navigator {
	return &Navigator{State: StateClassDetails}
}

// clampIndex returns i limited to [0, n-1], or 0 when n is 0.
func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Clamp moves the active indexes back into range for c.
func (n *Navigator) Clamp(c core.Class) {
	n.ActiveMarker = clampIndex(n.ActiveMarker, len(c.MarkerObjects))
	if len(c.MarkerObjects) == 0 {
		n.ActiveStep = 0
		return
	}
	n.ActiveStep = clampIndex(n.ActiveStep, len(c.MarkerObjects[n.ActiveMarker].Steps))
}

// ShowMarkers moves to the marker list.
func (n *Navigator) ShowMarkers() {
	n.State = StateMarkerList
}

// OpenMarker selects marker idx and opens its editor on the first step.
func (n *Navigator) OpenMarker(c core.Class, idx int) {
	n.ActiveMarker = idx
	n.ActiveStep = 0
	n.State = StateMarkerEditor
	n.Clamp(c)
}

// OpenStep selects step idx of the active marker and opens the step editor.
func (n *Navigator) OpenStep(c core.Class, idx int) {
	n.ActiveStep = idx
	n.State = StateStepEditor
	n.Clamp(c)
}

// Back returns to the previous screen.
func (n *Navigator) Back() {
	switch n.State {
	case StateStepEditor:
		n.State = StateMarkerEditor
	case StateMarkerEditor:
		n.State = StateMarkerList
	case StateMarkerList:
		n.State = StateClassDetails
	}
}

// AddMarker appends a marker, selects it and opens its editor.
func (n *Navigator) AddMarker(c core.Class) core.Class {
	out := AddMarker(c)
	n.OpenMarker(out, len(out.MarkerObjects)-1)
	return out
}

// RemoveMarker removes marker idx and re-clamps the selection. A selection
// at or after the removed marker shifts back by one.
func (n *Navigator) RemoveMarker(c core.Class, idx int) (core.Class, error) {
	out, err := RemoveMarker(c, idx)
	if err != nil {
		return out, err
	}
	if n.ActiveMarker >= idx && n.ActiveMarker > 0 {
		n.ActiveMarker--
	}
	n.Clamp(out)
	return out, nil
}

// AddStep appends a step to the active marker and opens it.
func (n *Navigator) AddStep(c core.Class) core.Class {
	out := AddStep(c, n.ActiveMarker)
	n.OpenStep(out, len(out.MarkerObjects[n.ActiveMarker].Steps)-1)
	return out
}

// RemoveStep removes step idx of the active marker and re-clamps the selection.
func (n *Navigator) RemoveStep(c core.Class, idx int) (core.Class, error) {
	out, err := RemoveStep(c, n.ActiveMarker, idx)
	if err != nil {
		return out, err
	}
	if n.ActiveStep >= idx && n.ActiveStep > 0 {
		n.ActiveStep--
	}
	n.Clamp(out)
	return out, nil
}
