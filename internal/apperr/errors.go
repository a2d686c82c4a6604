// Package apperr defines the error values shared across GlamCal layers.
package apperr

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrClosed          = errors.New("business is closed on this date")
	ErrSearchExhausted = errors.New("no open day found within search limit")
)

// ValidationError reports rejected input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	// Fields maps an input field name to the reason it was rejected.
	Fields map[string]string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, k := range sortedKeys(e.Fields) {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation converts an ozzo-validation result into a ValidationError.
// It returns nil when err is nil. Errors that are not field errors are
// reported under the "_" key.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
		for name, fe := range fieldErrs {
			if fe != nil {
				out.Fields[name] = fe.Error()
			}
		}
		return out
	}
	return &ValidationError{Fields: map[string]string{"_": err.Error()}}
}

// Invalid builds a single-field ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
