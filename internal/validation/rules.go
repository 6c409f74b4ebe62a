// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/json"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/publishq/internal/errors"
)

var (
	// nameRegex matches queue names, job types and platform names
	nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:\-]*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Name validates identifiers such as queue names and job types: letters, digits
// and ". _ : -", starting with a letter or digit.
var Name = validation.NewStringRuleWithError(
	func(s string) bool {
		return nameRegex.MatchString(s)
	},
	validation.NewError("validation_name", "must contain only letters, digits, '.', '_', ':' or '-'"),
)

// JSONDocument validates that a []byte or json.RawMessage holds a single JSON value.
// Empty input is accepted; use Required to reject it.
var JSONDocument = validation.By(func(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return validation.NewError("validation_json_type", "must be a JSON document")
	}
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return validation.NewError("validation_json", "must be a valid JSON document")
	}
	return nil
})

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
