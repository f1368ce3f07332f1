// Package forms validates submitted HTML forms. Each form exposes its
// field constraints as a map of validator tags and turns url.Values into a
// typed value or a set of field errors.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationErrors maps a form field to its messages.
type ValidationErrors map[string][]string

func (ve ValidationErrors) Error() string {
	fields := make([]string, 0, len(ve))
	for field := range ve {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(ve[field], " ")))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Field returns the first message for a field, or "".
func (ve ValidationErrors) Field(name string) string {
	if msgs := ve[name]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// AsValidationErrors extracts field errors from err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// check runs rules against the trimmed values of the named fields and
// returns the cleaned values together with any field errors.
func check(in url.Values, rules map[string]string) (map[string]string, error) {
	data := make(map[string]interface{}, len(rules))
	clean := make(map[string]string, len(rules))
	for field := range rules {
		v := strings.TrimSpace(in.Get(field))
		data[field] = v
		clean[field] = v
	}

	rulesAny := make(map[string]interface{}, len(rules))
	for field, rule := range rules {
		rulesAny[field] = rule
	}

	failed := validate.ValidateMap(data, rulesAny)
	if len(failed) == 0 {
		return clean, nil
	}

	ve := make(ValidationErrors, len(failed))
	for field, err := range failed {
		var fieldErrs validator.ValidationErrors
		if e, ok := err.(error); ok && errors.As(e, &fieldErrs) {
			for _, fe := range fieldErrs {
				ve[field] = append(ve[field], message(fe))
			}
			continue
		}
		ve[field] = append(ve[field], "Enter a valid value.")
	}
	return clean, ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	default:
		return "Enter a valid value."
	}
}
