// Package validation wraps go-playground/validator v10 with a shared,
// lazily built validator. Field names in errors are taken from json
// tags so messages match what clients sent.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one failed rule.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e FieldError) Error() string {
	switch e.Tag {
	case "required":
		return e.Field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.Field, e.Param)
	case "email":
		return e.Field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Tag)
	}
}

// RequestValidationError collects every failed rule of one request.
type RequestValidationError struct {
	Fields []FieldError
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		msgs = append(msgs, f.Error())
	}
	return strings.Join(msgs, "; ")
}

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct validates s against its `validate` tags. A nil return
// means the value is valid; rule failures come back as
// *RequestValidationError, anything else is a programming error.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &RequestValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from a validator namespace,
// "BatchRequest.measurements[0].latitude" becomes "measurements[0].latitude".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
