// Package editor implements the structural operations on a class tree.
//
// Every operation takes the current class and returns a new one; inputs are
// never modified. Index arguments must be in range, the caller is responsible
// for bounds. Operations that would break the one-marker or one-step minimum
// return the input unchanged together with a *core.ValidationError.
package editor

import (
	"slices"

	"github.com/areduca/classbuilder/pkg/core"
)

// AddMarker appends a marker holding one empty step.
func AddMarker(c core.Class) core.Class {
	return withMarkers(c, func(ms []core.Marker) []core.Marker {
		return append(ms, core.NewMarker())
	})
}

// RemoveMarker removes the marker at idx unless it is the only one.
func RemoveMarker(c core.Class, idx int) (core.Class, error) {
	if len(c.MarkerObjects) <= 1 {
		return c, core.MarkerError(core.CodeLastMarker, core.ErrLastMarker.Message, idx, c.MarkerObjects[idx])
	}
	return withMarkers(c, func(ms []core.Marker) []core.Marker {
		return slices.Delete(ms, idx, idx+1)
	}), nil
}

// DuplicateMarker inserts a deep copy of the marker at idx right after it.
// The copy and its whole subtree get fresh identifiers.
func DuplicateMarker(c core.Class, idx int) core.Class {
	dup := reidentify(c.MarkerObjects[idx])
	return withMarkers(c, func(ms []core.Marker) []core.Marker {
		return slices.Insert(ms, idx+1, dup)
	})
}

func reidentify(m core.Marker) core.Marker {
	out := m.Clone()
	out.ID = core.NewID(core.PrefixMarker)
	for i := range out.Steps {
		s := &out.Steps[i]
		s.ID = core.NewID(core.PrefixStep)
		for j := range s.Contents {
			s.Contents[j].ID = core.NewID(core.PrefixContent)
		}
	}
	return out
}

// SetMarkerImage replaces the image of marker idx. An empty ref clears it.
// The first marker's image also becomes the class thumbnail when none is set.
func SetMarkerImage(c core.Class, idx int, ref string) core.Class {
	out := updateMarker(c, idx, func(m core.Marker) core.Marker {
		m.MarkerImage = ref
		return m
	})
	if idx == 0 && out.Thumbnail == "" {
		out.Thumbnail = ref
	}
	return out
}

// MoveMarker moves the marker at from to position to.
func MoveMarker(c core.Class, from, to int) core.Class {
	return withMarkers(c, func(ms []core.Marker) []core.Marker {
		return move(ms, from, to)
	})
}

// AddStep appends an empty step to marker mi.
func AddStep(c core.Class, mi int) core.Class {
	return withSteps(c, mi, func(ss []core.Step) []core.Step {
		return append(ss, core.NewStep())
	})
}

// RemoveStep removes step si of marker mi unless it is the marker's only step.
func RemoveStep(c core.Class, mi, si int) (core.Class, error) {
	m := c.MarkerObjects[mi]
	if len(m.Steps) <= 1 {
		err := core.MarkerError(core.CodeLastStep, core.ErrLastStep.Message, mi, m)
		err.StepID = m.Steps[si].ID
		return c, err
	}
	return withSteps(c, mi, func(ss []core.Step) []core.Step {
		return slices.Delete(ss, si, si+1)
	}), nil
}

// MoveStep reorders the steps of marker mi.
func MoveStep(c core.Class, mi, from, to int) core.Class {
	return withSteps(c, mi, func(ss []core.Step) []core.Step {
		return move(ss, from, to)
	})
}

// AddContent appends an empty item of type t to step si of marker mi.
func AddContent(c core.Class, mi, si int, t core.ContentType) core.Class {
	return withContents(c, mi, si, func(cs []core.Content) []core.Content {
		return append(cs, core.NewContent(t))
	})
}

// UpdateContent merges patch into content ci. An empty patch is a no-op.
func UpdateContent(c core.Class, mi, si, ci int, patch core.ContentPatch) core.Class {
	if patch.Empty() {
		return c
	}
	return updateContent(c, mi, si, ci, patch.Apply)
}

// RemoveContent removes content ci from step si of marker mi.
func RemoveContent(c core.Class, mi, si, ci int) core.Class {
	return withContents(c, mi, si, func(cs []core.Content) []core.Content {
		return slices.Delete(cs, ci, ci+1)
	})
}

// MoveContent reorders the contents of a step.
func MoveContent(c core.Class, mi, si, from, to int) core.Class {
	return withContents(c, mi, si, func(cs []core.Content) []core.Content {
		return move(cs, from, to)
	})
}

// SetDetails replaces the title and description.
func SetDetails(c core.Class, title, description string) core.Class {
	c.Title = title
	c.Description = description
	return touch(c)
}

// SetThumbnail replaces the class thumbnail.
func SetThumbnail(c core.Class, ref string) core.Class {
	c.Thumbnail = ref
	return touch(c)
}
