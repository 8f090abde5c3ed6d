package core

// ContentPatch is a partial update of a Content item. Only the declared fields
// can be merged; nil fields are left untouched. The identifier is not patchable.
type ContentPatch struct {
	Type        *ContentType  `json:"type,omitempty"`
	Value       *string       `json:"value,omitempty"`
	Title       *string       `json:"title,omitempty"`
	Action      *ButtonAction `json:"action,omitempty"`
	ActionValue *string       `json:"actionValue,omitempty"`
}

// Apply returns c with every non-nil field of p merged in.
func (p ContentPatch) Apply(c Content) Content {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Value != nil {
		c.Value = *p.Value
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Action != nil {
		c.Action = *p.Action
	}
	if p.ActionValue != nil {
		c.ActionValue = *p.ActionValue
	}
	return c
}

// Empty reports whether the patch changes nothing.
func (p ContentPatch) Empty() bool {
	return p.Type == nil && p.Value == nil && p.Title == nil && p.Action == nil && p.ActionValue == nil
}
