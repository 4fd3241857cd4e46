/*
errors.go - Centralized error types for the planning engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The api package maps these to HTTP status codes.

ERROR CATEGORIES:
  1. Validation errors - missing or malformed fields, rejected before any write
  2. Referential-integrity errors - deleting something still in use
  3. Store errors - persistence failures, never partially applied
  4. Not found - a referenced record does not exist

  Resolution gaps (no team, quarter or variant selected) are NOT errors:
  they render as an empty board.

SEE ALSO:
  - planner.go: Returns these errors
  - api/handlers.go: Maps them to HTTP responses
*/
package planning

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInUse is returned when deleting a record that others still reference.
	ErrInUse = errors.New("record in use")

	// ErrStore is returned when the backing store fails a read or write.
	ErrStore = errors.New("store failure")

	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// InUseError reports why a delete was blocked.
type InUseError struct {
	Kind string // "team", "role", "quarter"
	ID   string
	By   string // what still references it, e.g. "members"
	Refs int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s %s is referenced by %d %s", e.Kind, e.ID, e.Refs, e.By)
}

func (e *InUseError) Unwrap() error {
	return ErrInUse
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StoreError wraps a failure from the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStore and the underlying cause.
func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

func notFound(kind string, id any) error {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the request conflicts with existing data.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInUse) || errors.Is(err, ErrDuplicate)
}
