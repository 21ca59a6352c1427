// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

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

// FieldError is a single field validation failure.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// Error returns the human-readable message.
func (e FieldError) Error() string {
	return e.Message
}

// RequestValidationError is the collection of failures for one struct.
type RequestValidationError struct {
	Fields []FieldError
}

// Error implements the error interface, joining all field messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.Fields))
	for i, fe := range ve.Fields {
		messages[i] = fe.Message
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// jsonFieldName reports the json tag name of a field, or the Go name when untagged.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}},
		}
	}

	fields := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translateError(fe),
		}
	}
	return &RequestValidationError{Fields: fields}
}

// messages renders a field error per validator tag.
var messages = map[string]func(fe validator.FieldError) string{
	"required": func(fe validator.FieldError) string {
		return fe.Field() + " is required"
	},
	"required_if": func(fe validator.FieldError) string {
		// Param is "<Field> <value>", e.g. "Kind receipt".
		other, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s is required when %s is %s", fe.Field(), strings.ToLower(other), value)
	},
	"oneof": func(fe validator.FieldError) string {
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	},
	"max": func(fe validator.FieldError) string {
		return fmt.Sprintf("%s must be at most %s %s", fe.Field(), fe.Param(), unit(fe.Kind()))
	},
	"min": func(fe validator.FieldError) string {
		return fmt.Sprintf("%s must be at least %s %s", fe.Field(), fe.Param(), unit(fe.Kind()))
	},
}

func unit(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "characters"
	case reflect.Map:
		return "entries"
	case reflect.Slice, reflect.Array:
		return "items"
	default:
		return ""
	}
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	if render, ok := messages[fe.Tag()]; ok {
		return strings.TrimSpace(render(fe))
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
