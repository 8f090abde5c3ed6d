package core

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies the kind of a ValidationError.
type Code string

const (
	CodeMissingTitle       Code = "missing_title"
	CodeMissingDescription Code = "missing_description"
	CodeNoMarkerImage      Code = "no_marker_image"
	CodeEmptyMarkerContent Code = "empty_marker_content"
	CodeLastMarker         Code = "last_marker"
	CodeLastStep           Code = "last_step"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeInvalidField       Code = "invalid_field"
)

// Sentinels for errors.Is; they match any ValidationError with the same Code.
var (
	ErrMissingTitle       = &ValidationError{Code: CodeMissingTitle, Message: "title is required"}
	ErrMissingDescription = &ValidationError{Code: CodeMissingDescription, Message: "description is required"}
	ErrNoMarkerImage      = &ValidationError{Code: CodeNoMarkerImage, Message: "at least one marker must have an image"}
	ErrEmptyMarkerContent = &ValidationError{Code: CodeEmptyMarkerContent, Message: "marker has no content"}
	ErrLastMarker         = &ValidationError{Code: CodeLastMarker, Message: "cannot remove the only marker"}
	ErrLastStep           = &ValidationError{Code: CodeLastStep, Message: "cannot remove the only step of a marker"}
	ErrUnauthenticated    = &ValidationError{Code: CodeUnauthenticated, Message: "user is not authenticated"}
	ErrInvalidField       = &ValidationError{Code: CodeInvalidField, Message: "invalid field"}
)

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is a user-correctable problem. MarkerID, MarkerIndex and StepID
// locate the offending part of the class when known; MarkerIndex is -1 otherwise.
type ValidationError struct {
	Code        Code         `json:"code"`
	Message     string       `json:"message"`
	MarkerID    string       `json:"markerId,omitempty"`
	MarkerIndex int          `json:"markerIndex"`
	StepID      string       `json:"stepId,omitempty"`
	Fields      []FieldError `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.MarkerID != "" {
		fmt.Fprintf(&b, " (marker %s", e.MarkerID)
		if e.StepID != "" {
			fmt.Fprintf(&b, ", step %s", e.StepID)
		}
		b.WriteByte(')')
	}
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "; %s: %s", f.Field, f.Error)
	}
	return b.String()
}

// Is matches on Code so sentinels compare equal to located instances.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewValidationError builds a ValidationError with no location.
func NewValidationError(code Code, msg string, flds ...FieldError) *ValidationError {
	return &ValidationError{Code: code, Message: msg, MarkerIndex: -1, Fields: flds}
}

// MarkerError builds a ValidationError located at a marker.
func MarkerError(code Code, msg string, idx int, m Marker) *ValidationError {
	return &ValidationError{Code: code, Message: msg, MarkerID: m.ID, MarkerIndex: idx}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError reports a failure of the persistence collaborator. The cause is
// preserved for diagnostics; its text is not stable across versions.
type StorageError struct {
	Op      string
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s (%s): %v", e.Op, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// WrapStorage wraps err as a StorageError, returning nil for a nil err.
func WrapStorage(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Backend: backend, Err: err}
}

// IsStorage reports whether err is, or wraps, a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
