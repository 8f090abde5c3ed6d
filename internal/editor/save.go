package editor

import (
	"github.com/areduca/classbuilder/pkg/core"
)

// PrepareForSave returns the savable form of c. Markers without an image are
// dropped; the rest must each hold at least one content item with a value, or
// a button. It has no side effects and is idempotent on its own output.
func PrepareForSave(c core.Class) (core.Class, error) {
	kept := make([]core.Marker, 0, len(c.MarkerObjects))
	origin := make([]int, 0, len(c.MarkerObjects))
	for i, m := range c.MarkerObjects {
		if m.HasImage() {
			kept = append(kept, m.Clone())
			origin = append(origin, i)
		}
	}
	if len(kept) == 0 {
		return core.Class{}, core.NewValidationError(core.CodeNoMarkerImage, core.ErrNoMarkerImage.Message)
	}

	for i, m := range kept {
		if !hasContent(m) {
			return core.Class{}, core.MarkerError(core.CodeEmptyMarkerContent, core.ErrEmptyMarkerContent.Message, origin[i], m)
		}
	}

	out := c
	out.MarkerObjects = kept
	return touch(out), nil
}

// CanSave reports whether c would pass PrepareForSave.
func CanSave(c core.Class) error {
	_, err := PrepareForSave(c)
	return err
}

func hasContent(m core.Marker) bool {
	for _, s := range m.Steps {
		for _, item := range s.Contents {
			if item.HasValue() {
				return true
			}
		}
	}
	return false
}
