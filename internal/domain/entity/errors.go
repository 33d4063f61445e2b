package entity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors used across all layers.
var (
	ErrValidation = errors.New("validation error")
	ErrCapacity   = errors.New("capacity exceeded")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// ValidationError reports a rejected input value and the rule it violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CapacityError is returned when a chat is already at its participant limit.
type CapacityError struct {
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("chat cannot exceed %d participants", e.Limit)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

// NotFoundError is returned when a referenced aggregate does not exist.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NewChatNotFound(id uuid.UUID) *NotFoundError {
	return &NotFoundError{Entity: "chat", ID: id}
}

// ConflictError is returned by the store when the version a chat was loaded
// at no longer matches the stored version.
type ConflictError struct {
	ChatID          uuid.UUID
	ExpectedVersion int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("chat %s was modified concurrently (expected version %d)", e.ChatID, e.ExpectedVersion)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
