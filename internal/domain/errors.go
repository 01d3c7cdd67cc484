package domain

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
	ErrPersistence       = errors.New("persistence failure")
	ErrDelivery          = errors.New("delivery failure")
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ValidationError carries field-level validation failures (field -> message).
type ValidationError struct {
	Fields   map[string]string
	conflict bool
}

// NewValidationError returns an empty ValidationError ready to accumulate fields.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records msg for field, keeping the first message reported for a field.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// AddConflict records msg for field and marks the error as a uniqueness conflict.
func (e *ValidationError) AddConflict(field, msg string) {
	e.Add(field, msg)
	e.conflict = true
}

// Empty reports whether no field failures were recorded.
func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.conflict {
		return []error{ErrValidation, ErrConflict}
	}
	return []error{ErrValidation}
}
