package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or oversized input. The wrapped
	// message is safe to show to the requesting user verbatim.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyClockedIn is returned when the user's latest record is a clock-in.
	ErrAlreadyClockedIn = errors.New("already clocked in")
	// ErrNotClockedIn is returned when there is no open clock-in to close.
	ErrNotClockedIn = errors.New("not clocked in")
	// ErrUnknownAttendanceType is returned when the named type is missing or inactive.
	ErrUnknownAttendanceType = errors.New("unknown or inactive attendance type")
	// ErrDuplicateTypeName indicates an attendance type name collision.
	ErrDuplicateTypeName = errors.New("attendance type name already exists")
	// ErrTypeNotFound is returned when an attendance type cannot be located by name.
	ErrTypeNotFound = errors.New("attendance type not found")
	// ErrForeignKey indicates a stale reference reached the store. It is a
	// bug, not a user-correctable condition.
	ErrForeignKey = errors.New("referenced row does not exist")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
