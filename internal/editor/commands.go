package editor

import (
	"github.com/areduca/classbuilder/internal/dispatcher"
	"github.com/areduca/classbuilder/pkg/core"
)

// Command names accepted by the dispatcher.
const (
	CmdMarkerAdd       = "marker:add"
	CmdMarkerRemove    = "marker:remove"
	CmdMarkerDuplicate = "marker:duplicate"
	CmdMarkerImage     = "marker:image"
	CmdMarkerMove      = "marker:move"
	CmdStepAdd         = "step:add"
	CmdStepRemove      = "step:remove"
	CmdStepMove        = "step:move"
	CmdContentAdd      = "content:add"
	CmdContentUpdate   = "content:update"
	CmdContentRemove   = "content:remove"
	CmdContentMove     = "content:move"
	CmdClassDetails    = "class:details"
	CmdClassThumbnail  = "class:thumbnail"
)

// Register binds every structural operation to its command name.
// Indexes in a command are checked against the class before the operation runs.
func Register(d *dispatcher.Dispatcher, opts ...dispatcher.Option) {
	d.Register(CmdMarkerAdd, func(cmd dispatcher.Command) (core.Class, error) {
		return AddMarker(cmd.Class), nil
	}, opts...)
	d.Register(CmdMarkerRemove, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkMarker(cmd); err != nil {
			return cmd.Class, err
		}
		return RemoveMarker(cmd.Class, cmd.Marker)
	}, opts...)
	d.Register(CmdMarkerDuplicate, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkMarker(cmd); err != nil {
			return cmd.Class, err
		}
		return DuplicateMarker(cmd.Class, cmd.Marker), nil
	}, opts...)
	d.Register(CmdMarkerImage, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkMarker(cmd); err != nil {
			return cmd.Class, err
		}
		return SetMarkerImage(cmd.Class, cmd.Marker, cmd.Image), nil
	}, opts...)
	d.Register(CmdMarkerMove, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkMarker(cmd); err != nil {
			return cmd.Class, err
		}
		if err := checkIndex("to", cmd.To, len(cmd.Class.MarkerObjects)); err != nil {
			return cmd.Class, err
		}
		return MoveMarker(cmd.Class, cmd.Marker, cmd.To), nil
	}, opts...)

	d.Register(CmdStepAdd, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkMarker(cmd); err != nil {
			return cmd.Class, err
		}
		return AddStep(cmd.Class, cmd.Marker), nil
	}, opts...)
	d.Register(CmdStepRemove, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkStep(cmd); err != nil {
			return cmd.Class, err
		}
		return RemoveStep(cmd.Class, cmd.Marker, cmd.Step)
	}, opts...)
	d.Register(CmdStepMove, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkStep(cmd); err != nil {
			return cmd.Class, err
		}
		if err := checkIndex("to", cmd.To, len(cmd.Class.MarkerObjects[cmd.Marker].Steps)); err != nil {
			return cmd.Class, err
		}
		return MoveStep(cmd.Class, cmd.Marker, cmd.Step, cmd.To), nil
	}, opts...)

	d.Register(CmdContentAdd, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkStep(cmd); err != nil {
			return cmd.Class, err
		}
		if !cmd.Type.Valid() {
			return cmd.Class, core.NewValidationError(core.CodeInvalidField, "unknown content type",
				core.FieldError{Field: "type", Error: "must be one of text image video audio url button"})
		}
		return AddContent(cmd.Class, cmd.Marker, cmd.Step, cmd.Type), nil
	}, opts...)
	d.Register(CmdContentUpdate, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkContent(cmd); err != nil {
			return cmd.Class, err
		}
		return UpdateContent(cmd.Class, cmd.Marker, cmd.Step, cmd.Content, cmd.Patch), nil
	}, opts...)
	d.Register(CmdContentRemove, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkContent(cmd); err != nil {
			return cmd.Class, err
		}
		return RemoveContent(cmd.Class, cmd.Marker, cmd.Step, cmd.Content), nil
	}, opts...)
	d.Register(CmdContentMove, func(cmd dispatcher.Command) (core.Class, error) {
		if err := checkContent(cmd); err != nil {
			return cmd.Class, err
		}
		n := len(cmd.Class.MarkerObjects[cmd.Marker].Steps[cmd.Step].Contents)
		if err := checkIndex("to", cmd.To, n); err != nil {
			return cmd.Class, err
		}
		return MoveContent(cmd.Class, cmd.Marker, cmd.Step, cmd.Content, cmd.To), nil
	}, opts...)

	d.Register(CmdClassDetails, func(cmd dispatcher.Command) (core.Class, error) {
		return SetDetails(cmd.Class, cmd.Title, cmd.Description), nil
	}, opts...)
	d.Register(CmdClassThumbnail, func(cmd dispatcher.Command) (core.Class, error) {
		return SetThumbnail(cmd.Class, cmd.Image), nil
	}, opts...)
}

func checkIndex(field string, idx, n int) error {
	if idx < 0 || idx >= n {
		return core.NewValidationError(core.CodeInvalidField, "index out of range",
			core.FieldError{Field: field, Error: "index out of range"})
	}
	return nil
}

func checkMarker(cmd dispatcher.Command) error {
	return checkIndex("marker", cmd.Marker, len(cmd.Class.MarkerObjects))
}

func checkStep(cmd dispatcher.Command) error {
	if err := checkMarker(cmd); err != nil {
		return err
	}
	return checkIndex("step", cmd.Step, len(cmd.Class.MarkerObjects[cmd.Marker].Steps))
}

func checkContent(cmd dispatcher.Command) error {
	if err := checkStep(cmd); err != nil {
		return err
	}
	return checkIndex("content", cmd.Content, len(cmd.Class.MarkerObjects[cmd.Marker].Steps[cmd.Step].Contents))
}
