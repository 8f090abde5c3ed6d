package editor

import (
	"errors"
	"reflect"
	"strings"

	"github.com/areduca/classbuilder/pkg/core"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag = "notblank"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(t ut.Translator) error { return t.Add(notBlankTag, "{0} is required", true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(notBlankTag, fe.Field())
			return s
		},
	)
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// CheckDetails validates the fields an author types in: title and description,
// content types, button actions, and the target URL of openUrl buttons. The
// returned error lists every failing field by its JSON path. Markers without
// an image are pruned on save, so their content is not checked.
func CheckDetails(c core.Class) error {
	err := validate.Struct(withoutImagelessContent(c))
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	code := core.CodeInvalidField
	fields := make([]core.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe)
		fields = append(fields, core.FieldError{Field: path, Error: fe.Translate(translator)})

		if code != core.CodeInvalidField || fe.Tag() != notBlankTag {
			continue
		}
		switch path {
		case "title":
			code = core.CodeMissingTitle
		case "description":
			code = core.CodeMissingDescription
		}
	}

	msg := core.ErrInvalidField.Message
	switch code {
	case core.CodeMissingTitle:
		msg = core.ErrMissingTitle.Message
	case core.CodeMissingDescription:
		msg = core.ErrMissingDescription.Message
	}
	return core.NewValidationError(code, msg, fields...)
}

// withoutImagelessContent blanks the steps of markers that have no image,
// keeping marker positions so field paths still match c.
func withoutImagelessContent(c core.Class) core.Class {
	markers := make([]core.Marker, len(c.MarkerObjects))
	for i, m := range c.MarkerObjects {
		if !m.HasImage() {
			m.Steps = nil
		}
		markers[i] = m
	}
	c.MarkerObjects = markers
	return c
}

// fieldPath drops the root struct name from the namespace,
// e.g. "Class.markerObjects[0].steps[1].contents[0].actionValue".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
