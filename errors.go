package main

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no zombie matches the requested id.
var ErrNotFound = errors.New("zombie not found")

// ErrNotConnected is returned when a store method is called before Connect.
var ErrNotConnected = errors.New("store not connected: call Connect first")

// Validation error codes surfaced to API clients.
const (
	CodeInvalidName        = "INVALID_ZOMBIE_NAME"
	CodeItemNotAnObject    = "INVALID_ZOMBIE_ITEM"
	CodeItemScheme         = "INVALID_ITEM_SCHEME"
	CodeItemName           = "ITEM_NAME_INVALID"
	CodeItemsNotAnArray    = "ITEMS_MUST_BE_AN_ARRAY"
	CodeTooManyItems       = "TOO_MANY_ITEMS"
	CodeImmutableID        = "ZOMBIE_ID_CANNOT_BE_UPDATED"
	CodeImmutableCreation  = "ZOMBIE_CREATION_DATE_CANNOT_BE_CHANGED"
	CodeInvalidMutation    = "INVALID_ZOMBIE_MUTATION"
	CodeNothingDeleted     = "NO_ZOMBIES_DELETED"
	CodeZombieNotFound     = "ZOMBIE_NOT_FOUND"
	CodeZombieItemNotFound = "ZOMBIE_ITEM_NOT_FOUND"
)

// ValidationError describes a client-side rule violation with a stable code
// and a human-readable message. The HTTP status is chosen at the boundary.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}
