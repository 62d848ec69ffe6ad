package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a resource with the same id already exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInUse is returned when a resource cannot be removed while others reference it.
	ErrInUse = errors.New("application: resource in use")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// ConflictError reports that a proposal collides with an accepted schedule.
type ConflictError struct {
	ScheduleID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("application: conflicts with schedule %s", e.ScheduleID)
}

// BusyError reports that the room lock could not be acquired in time. It is
// transient and the caller may retry.
type BusyError struct {
	RoomID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("application: room %s is busy", e.RoomID)
}
