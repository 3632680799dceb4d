package drafting

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ErrPasswordMismatch is returned when a password and its confirmation differ.
var ErrPasswordMismatch = errors.New("password confirmation does not match")

// FieldError describes one invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a local form failure detected before any network call.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns nil when no field failed.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Require adds a "can't be blank" failure when value is empty.
func (e *ValidationError) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "can't be blank")
	}
}

// ValidateStruct checks the binding tags of v with gin's validator and
// reports failures as a ValidationError.
func ValidateStruct(v any) error {
	return FromBinding(binding.Validator.ValidateStruct(v))
}

// FromBinding converts tag failures into a ValidationError, or into
// ErrPasswordMismatch when the confirmation is the only problem. Other errors
// are returned unchanged.
func FromBinding(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationError{}
	mismatch := false
	for _, fe := range fieldErrs {
		if fe.Tag() == "eqfield" && fe.Param() == "Password" {
			mismatch = true
			continue
		}
		out.Add(snakeCase(fe.Field()), tagMessage(fe))
	}
	if len(out.Fields) == 0 && mismatch {
		return ErrPasswordMismatch
	}
	return out.Err()
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "eqfield":
		return "doesn't match " + snakeCase(fe.Param())
	default:
		return "is invalid"
	}
}

func snakeCase(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		if unicode.IsUpper(r) {
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
			continue
		}
		b.WriteRune(r)
		prevLower = true
	}
	return b.String()
}
