package core

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// ID prefixes for each entity level
const (
	PrefixClass   = "class"
	PrefixMarker  = "marker"
	PrefixStep    = "step"
	PrefixContent = "content"
)

const idSuffixLen = 9

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Clock is the time source for identifiers and timestamps. Tests may replace it.
var Clock = time.Now

// NowMillis returns the current Clock time in epoch milliseconds.
func NowMillis() int64 {
	return Clock().UnixMilli()
}

// NewID returns an identifier of the form <prefix>_<epochMs>_<random base36>.
// It is unique within an editing session, not cryptographically.
func NewID(prefix string) string {
	suffix := make([]byte, idSuffixLen)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return prefix + "_" + strconv.FormatInt(NowMillis(), 10) + "_" + string(suffix)
}

// NewClass returns a Class with one default marker holding one empty step.
// The owner is not part of the entity, the persistence adapter tags it on save.
func NewClass(ownerID string) Class {
	now := NowMillis()
	return Class{
		ID:            NewID(PrefixClass),
		MarkerObjects: []Marker{NewMarker()},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewMarker returns a marker with no image and one empty step.
func NewMarker() Marker {
	return Marker{
		ID:    NewID(PrefixMarker),
		Steps: []Step{NewStep()},
	}
}

// NewStep returns a step with no content.
func NewStep() Step {
	return Step{
		ID:       NewID(PrefixStep),
		Contents: []Content{},
	}
}

// NewContent returns an empty content item of type t. Buttons default to
// advancing to the next step.
func NewContent(t ContentType) Content {
	c := Content{
		ID:   NewID(PrefixContent),
		Type: t,
	}
	if t == ContentButton {
		c.Action = ActionNextStep
		c.ActionValue = ""
	}
	return c
}
