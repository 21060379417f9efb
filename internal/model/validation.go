package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports which fields of an input failed validation.
type ValidationError struct {
	Kind    error
	Details []string
}

func (validationError *ValidationError) Error() string {
	if len(validationError.Details) == 0 {
		return validationError.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", validationError.Kind.Error(), strings.Join(validationError.Details, "; "))
}

func (validationError *ValidationError) Unwrap() error {
	return validationError.Kind
}

func newValidationError(kind error, details ...string) *ValidationError {
	return &ValidationError{Kind: kind, Details: details}
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		default:
			return name
		}
	})
	return validate
}

func validateStruct(kind error, value any) error {
	validationErr := structValidator.Struct(value)
	if validationErr == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(validationErr, &fieldErrors) {
		return newValidationError(kind, validationErr.Error())
	}

	details := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		details = append(details, describeFieldError(fieldError))
	}
	return newValidationError(kind, details...)
}

func describeFieldError(fieldError validator.FieldError) string {
	fieldName := fieldError.Field()
	switch fieldError.Tag() {
	case "required":
		return fieldName + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fieldName, fieldError.Param())
	case "email":
		return fieldName + " must be a valid email address"
	case "http_url", "url":
		return fieldName + " must be an absolute http(s) URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fieldName, strings.ReplaceAll(fieldError.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fieldName, fieldError.Param())
	default:
		return fieldName + " is invalid"
	}
}

func truncateRunes(value string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(value) <= maxRunes {
		return value
	}
	return string([]rune(value)[:maxRunes])
}
