package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBroadcastNotFound = errors.New("broadcast not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNoRecipients      = errors.New("no recipients matched the given ids")
)

// ValidationError rejects a request before any recipient is processed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
