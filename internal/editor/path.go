package editor

import (
	"slices"

	"github.com/areduca/classbuilder/pkg/core"
)

// Every mutation goes through the helpers below. Each one copies only the
// slices along the path from the root to the changed node, so the input class
// and any untouched sibling subtrees are shared, never written.

// stamp returns the modification time for c, never earlier than its creation.
func stamp(c core.Class) int64 {
	return max(core.NowMillis(), c.CreatedAt)
}

func touch(c core.Class) core.Class {
	c.UpdatedAt = stamp(c)
	return c
}

func withMarkers(c core.Class, fn func([]core.Marker) []core.Marker) core.Class {
	c.MarkerObjects = fn(slices.Clone(c.MarkerObjects))
	return touch(c)
}

func updateMarker(c core.Class, mi int, fn func(core.Marker) core.Marker) core.Class {
	return withMarkers(c, func(ms []core.Marker) []core.Marker {
		ms[mi] = fn(ms[mi])
		return ms
	})
}

func withSteps(c core.Class, mi int, fn func([]core.Step) []core.Step) core.Class {
	return updateMarker(c, mi, func(m core.Marker) core.Marker {
		m.Steps = fn(slices.Clone(m.Steps))
		return m
	})
}

func updateStep(c core.Class, mi, si int, fn func(core.Step) core.Step) core.Class {
	return withSteps(c, mi, func(ss []core.Step) []core.Step {
		ss[si] = fn(ss[si])
		return ss
	})
}

func withContents(c core.Class, mi, si int, fn func([]core.Content) []core.Content) core.Class {
	return updateStep(c, mi, si, func(s core.Step) core.Step {
		s.Contents = fn(slices.Clone(s.Contents))
		return s
	})
}

func updateContent(c core.Class, mi, si, ci int, fn func(core.Content) core.Content) core.Class {
	return withContents(c, mi, si, func(cs []core.Content) []core.Content {
		cs[ci] = fn(cs[ci])
		return cs
	})
}

// move relocates s[from] to index to, shifting the elements in between.
// s must already be a private copy.
func move[T any](s []T, from, to int) []T {
	if from == to {
		return s
	}
	v := s[from]
	s = slices.Delete(s, from, from+1)
	return slices.Insert(s, to, v)
}
