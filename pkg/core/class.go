// pkg/core/class.go
package core

import "strings"

// ContentType is the kind of a content item within a step
type ContentType string

const (
	ContentText   ContentType = "text"
	ContentImage  ContentType = "image"
	ContentVideo  ContentType = "video"
	ContentAudio  ContentType = "audio"
	ContentURL    ContentType = "url"
	ContentButton ContentType = "button"
)

// ContentTypes lists every supported content type in display order.
func ContentTypes() []ContentType {
	return []ContentType{ContentText, ContentImage, ContentVideo, ContentURL, ContentAudio, ContentButton}
}

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentImage, ContentVideo, ContentAudio, ContentURL, ContentButton:
		return true
	}
	return false
}

// ButtonAction is what a button content item does when pressed
type ButtonAction string

const (
	ActionNextStep ButtonAction = "nextStep"
	ActionPrevStep ButtonAction = "prevStep"
	ActionOpenURL  ButtonAction = "openUrl"
	ActionCustom   ButtonAction = "custom"
)

// Valid reports whether a is one of the known button actions.
func (a ButtonAction) Valid() bool {
	switch a {
	case ActionNextStep, ActionPrevStep, ActionOpenURL, ActionCustom:
		return true
	}
	return false
}

// Content is one displayable or interactive unit within a Step.
// Value holds literal text for text items, a URL for media and links,
// and the label for buttons.
type Content struct {
	ID          string       `json:"id" bson:"id"`
	Type        ContentType  `json:"type" bson:"type" validate:"required,oneof=text image video audio url button"`
	Value       string       `json:"value" bson:"value"`
	Title       string       `json:"title,omitempty" bson:"title,omitempty"`
	Action      ButtonAction `json:"action,omitempty" bson:"action,omitempty" validate:"omitempty,oneof=nextStep prevStep openUrl custom"`
	ActionValue string       `json:"actionValue,omitempty" bson:"actionValue,omitempty" validate:"required_if=Action openUrl"`
}

// HasValue reports whether the item carries content of its own. Buttons always
// count, their meaning can live entirely in title and action.
func (c Content) HasValue() bool {
	return c.Type == ContentButton || strings.TrimSpace(c.Value) != ""
}

// Step is an ordered page of content shown after a marker is recognised
type Step struct {
	ID       string    `json:"id" bson:"id"`
	Contents []Content `json:"contents" bson:"contents" validate:"dive"`
}

// Marker is a physical image that triggers its steps when a camera recognises it
type Marker struct {
	ID          string `json:"id" bson:"id"`
	MarkerImage string `json:"markerImage" bson:"markerImage"`
	Steps       []Step `json:"steps" bson:"steps" validate:"dive"`
}

// HasImage reports whether the marker has an image reference.
func (m Marker) HasImage() bool {
	return strings.TrimSpace(m.MarkerImage) != ""
}

// Class is one authored AR lesson and the root of its marker/step/content tree.
// Timestamps are epoch milliseconds.
type Class struct {
	ID            string   `json:"id" bson:"_id"`
	Title         string   `json:"title" bson:"title" validate:"notblank,max=200"`
	Description   string   `json:"description" bson:"description" validate:"notblank,max=5000"`
	Thumbnail     string   `json:"thumbnail" bson:"thumbnail"`
	MarkerObjects []Marker `json:"markerObjects" bson:"markerObjects" validate:"dive"`
	CreatedAt     int64    `json:"createdAt" bson:"createdAt"`
	UpdatedAt     int64    `json:"updatedAt" bson:"updatedAt"`
}

// Record is the stored shape of a Class: the entity plus its owner tag.
type Record struct {
	Class   `bson:",inline"`
	OwnerID string `json:"ownerId" bson:"ownerId"`
}

// Summary is the list view of a stored Class.
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	MarkerCount int    `json:"markerCount"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// Summarize builds the list view of c.
func (c Class) Summarize() Summary {
	return Summary{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Thumbnail:   c.Thumbnail,
		MarkerCount: len(c.MarkerObjects),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// Clone returns a deep copy of c that shares no slices with it. Nil slices stay nil.
func (c Class) Clone() Class {
	out := c
	if c.MarkerObjects != nil {
		out.MarkerObjects = make([]Marker, len(c.MarkerObjects))
		for i, m := range c.MarkerObjects {
			out.MarkerObjects[i] = m.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m Marker) Clone() Marker {
	out := m
	if m.Steps != nil {
		out.Steps = make([]Step, len(m.Steps))
		for i, s := range m.Steps {
			out.Steps[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of s.
func (s Step) Clone() Step {
	out := s
	if s.Contents != nil {
		out.Contents = make([]Content, len(s.Contents))
		copy(out.Contents, s.Contents)
	}
	return out
}

// Normalize repairs a loaded Class so it satisfies the editing invariants:
// nil slices become empty and every marker has at least one step.
func (c Class) Normalize() Class {
	out := c.Clone()
	if out.MarkerObjects == nil {
		out.MarkerObjects = []Marker{}
	}
	for i := range out.MarkerObjects {
		m := &out.MarkerObjects[i]
		if len(m.Steps) == 0 {
			m.Steps = []Step{NewStep()}
		}
		for j := range m.Steps {
			if m.Steps[j].Contents == nil {
				m.Steps[j].Contents = []Content{}
			}
		}
	}
	if out.UpdatedAt < out.CreatedAt {
		out.UpdatedAt = out.CreatedAt
	}
	return out
}

// Counts returns the number of markers, steps and content items in c.
func (c Class) Counts() (markers, steps, contents int) {
	markers = len(c.MarkerObjects)
	for _, m := range c.MarkerObjects {
		steps += len(m.Steps)
		for _, s := range m.Steps {
			contents += len(s.Contents)
		}
	}
	return markers, steps, contents
}
